package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/output"
)

var editCmd = &cobra.Command{
	Use:   "edit <ref>",
	Short: "Edit an issue",
	Long:  "Edit an issue. Only the flags given are changed. Photos can be attached with --add-photo and detached with --remove-photo.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		issue, err := resolveIssue(ctx, st, args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if !flags.Changed("title") && !flags.Changed("description") && !flags.Changed("room") &&
			!flags.Changed("assignee") && !flags.Changed("type") && !flags.Changed("status") &&
			!flags.Changed("add-photo") && !flags.Changed("remove-photo") {
			return cmdErr(fmt.Errorf("nothing to change: pass at least one flag"), output.ErrValidation)
		}

		if flags.Changed("title") {
			title, _ := flags.GetString("title")
			issue.Title = strings.TrimSpace(title)
		}
		if flags.Changed("description") {
			description, _ := flags.GetString("description")
			if issue.Description, err = readDescription(description, cmd.InOrStdin()); err != nil {
				return err
			}
		}
		if flags.Changed("room") {
			slug, _ := flags.GetString("room")
			room, err := resolveRoom(ctx, st, slug)
			if err != nil {
				return err
			}
			issue.RoomSlug = room.Slug
		}
		if flags.Changed("assignee") {
			assignee, _ := flags.GetString("assignee")
			if err := checkAssignee(ctx, st, assignee); err != nil {
				return err
			}
			issue.AssigneeSlug = assignee
		}
		if flags.Changed("type") {
			kind, _ := flags.GetString("type")
			issue.Type = model.IssueType(kind)
		}
		if flags.Changed("status") {
			status, _ := flags.GetString("status")
			issue.Status = model.Status(status)
		}
		if err := issue.Validate(); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		photos, err := st.GetPhotosForIssue(ctx, issue.ID)
		if err != nil {
			return storeErr(err, "loading photos")
		}

		removeIDs, _ := flags.GetStringSlice("remove-photo")
		for _, id := range removeIDs {
			if !issue.HasPhoto(id) {
				return cmdErr(fmt.Errorf("photo %s is not attached to %s", id, issue.DisplayRef()), output.ErrNotFound)
			}
			issue.Photos = issue.WithoutPhoto(id)
		}
		kept := make([]*model.Photo, 0, len(photos))
		for _, p := range photos {
			if issue.HasPhoto(p.ID) {
				kept = append(kept, p)
			}
		}

		addPaths, _ := flags.GetStringSlice("add-photo")
		added, rejected := processPhotos(w, st, issue.ID, addPaths)
		kept = append(kept, added...)
		issue.Photos = photoIDs(kept)
		issue.UpdatedAt = st.Now()

		if err := st.SaveIssueWithPhotos(ctx, issue, kept); err != nil {
			return storeErr(err, "saving issue")
		}
		w.Success(issueResult{Issue: issue, Photos: kept, Rejected: rejected}, fmt.Sprintf("Updated %s: %s", issue.DisplayRef(), issue.Title))
		return nil
	},
}

func init() {
	editCmd.Flags().StringP("title", "t", "", "New title")
	editCmd.Flags().StringP("description", "d", "", "New description (use \"-\" for stdin)")
	editCmd.Flags().StringP("room", "r", "", "Move to room")
	editCmd.Flags().StringP("assignee", "a", "", "Assignee slug (empty to unassign)")
	editCmd.Flags().StringP("type", "T", "", "Issue type (reserve, todo)")
	editCmd.Flags().StringP("status", "s", "", "Status (open, done)")
	editCmd.Flags().StringSlice("add-photo", nil, "Image file to attach (repeatable)")
	editCmd.Flags().StringSlice("remove-photo", nil, "Photo id to detach (repeatable)")
	issueCmd.AddCommand(editCmd)
}

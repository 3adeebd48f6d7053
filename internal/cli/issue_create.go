package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/output"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Log a new réserve or to-do",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		roomSlug, _ := cmd.Flags().GetString("room")
		assignee, _ := cmd.Flags().GetString("assignee")
		kind, _ := cmd.Flags().GetString("type")
		photoPaths, _ := cmd.Flags().GetStringSlice("photo")

		if w.JSONMode && title == "" {
			return cmdErr(fmt.Errorf("--title is required in JSON mode"), output.ErrValidation)
		}

		if title == "" {
			rooms, err := st.ListRooms(ctx)
			if err != nil {
				return storeErr(err, "listing rooms")
			}
			if roomSlug == "" {
				if roomSlug, err = st.LastSelectedRoom(ctx); err != nil {
					return storeErr(err, "reading last room")
				}
			}
			roomOptions := make([]huh.Option[string], 0, len(rooms))
			for _, r := range model.SortRooms(rooms) {
				roomOptions = append(roomOptions, huh.NewOption(r.Name, r.Slug))
			}

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewSelect[string]().
						Title("Pièce").
						Options(roomOptions...).
						Value(&roomSlug),
					huh.NewInput().
						Title("Titre").
						Value(&title).
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return fmt.Errorf("title is required")
							}
							return nil
						}),
					huh.NewText().
						Title("Description").
						Value(&description),
					huh.NewSelect[string]().
						Title("Type").
						Options(
							huh.NewOption(model.TypeReserve.Label(), string(model.TypeReserve)),
							huh.NewOption(model.TypeTodo.Label(), string(model.TypeTodo)),
						).
						Value(&kind),
				),
			)
			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}
		}

		description, err := readDescription(description, cmd.InOrStdin())
		if err != nil {
			return err
		}

		room, err := resolveRoom(ctx, st, roomSlug)
		if err != nil {
			return err
		}
		if err := checkAssignee(ctx, st, assignee); err != nil {
			return err
		}

		existing, err := st.ListIssues(ctx)
		if err != nil {
			return storeErr(err, "listing issues")
		}

		now := st.Now()
		issue := &model.Issue{
			ID:           model.NewID(),
			Code:         model.NextCode(room.Letter, existing),
			RoomSlug:     room.Slug,
			AssigneeSlug: assignee,
			Type:         model.IssueType(kind),
			Title:        strings.TrimSpace(title),
			Description:  description,
			Status:       model.StatusOpen,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := issue.Validate(); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		photos, rejected := processPhotos(w, st, issue.ID, photoPaths)
		issue.Photos = photoIDs(photos)

		if err := st.SaveIssueWithPhotos(ctx, issue, photos); err != nil {
			return storeErr(err, "saving issue")
		}
		if err := st.SetLastSelectedRoom(ctx, room.Slug); err != nil {
			return storeErr(err, "saving last room")
		}

		msg := fmt.Sprintf("Created %s: %s", issue.DisplayRef(), issue.Title)
		if len(photos) > 0 {
			msg += fmt.Sprintf(" (%d photo(s))", len(photos))
		}
		w.Success(issueResult{Issue: issue, Photos: photos, Rejected: rejected}, msg)
		return nil
	},
}

func init() {
	createCmd.Flags().StringP("title", "t", "", "Issue title")
	createCmd.Flags().StringP("description", "d", "", "Issue description (use \"-\" for stdin)")
	createCmd.Flags().StringP("room", "r", "", "Room slug (default: last used room)")
	createCmd.Flags().StringP("assignee", "a", "", "Assignee slug")
	createCmd.Flags().StringP("type", "T", string(model.TypeReserve), "Issue type (reserve, todo)")
	createCmd.Flags().StringSliceP("photo", "p", nil, "Image file to attach (repeatable)")
	issueCmd.AddCommand(createCmd)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/output"
	"github.com/ALT-F4-LLC/pasfini/internal/render"
)

var assigneeCmd = &cobra.Command{
	Use:     "assignee",
	Short:   "Manage the people issues can be assigned to",
	Aliases: []string{"a"},
}

var assigneeListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List assignees",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		assignees, err := getStore(cmd).ListAssignees(cmd.Context())
		if err != nil {
			return storeErr(err, "listing assignees")
		}
		w.Success(assignees, render.RenderAssigneeTable(assignees))
		return nil
	},
}

var assigneeAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an assignee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		name := strings.TrimSpace(args[0])
		slug, _ := cmd.Flags().GetString("slug")
		if name == "" {
			return cmdErr(fmt.Errorf("assignee name is required"), output.ErrValidation)
		}
		if slug == "" {
			slug = model.Slugify(name)
		}
		if err := model.ValidateSlug(slug); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		assignees, err := st.ListAssignees(ctx)
		if err != nil {
			return storeErr(err, "listing assignees")
		}
		for _, a := range assignees {
			if a.Slug == slug {
				return cmdErr(fmt.Errorf("assignee %q already exists", slug), output.ErrConflict)
			}
		}

		a := model.Assignee{Slug: slug, Name: name}
		if err := st.SaveAssignees(ctx, append(assignees, a)); err != nil {
			return storeErr(err, "saving assignees")
		}
		w.Success(a, fmt.Sprintf("Added assignee %s (%s)", a.Name, a.Slug))
		return nil
	},
}

var assigneeRemoveCmd = &cobra.Command{
	Use:     "remove <slug>",
	Short:   "Remove an assignee",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()
		slug := args[0]

		assignees, err := st.ListAssignees(ctx)
		if err != nil {
			return storeErr(err, "listing assignees")
		}
		kept := make([]model.Assignee, 0, len(assignees))
		found := false
		for _, a := range assignees {
			if a.Slug == slug {
				found = true
				continue
			}
			kept = append(kept, a)
		}
		if !found {
			return cmdErr(fmt.Errorf("assignee %q not found", slug), output.ErrNotFound)
		}
		if err := st.SaveAssignees(ctx, kept); err != nil {
			return storeErr(err, "saving assignees")
		}
		w.Success(struct {
			Slug string `json:"slug"`
		}{slug}, fmt.Sprintf("Removed assignee %s", slug))
		return nil
	},
}

func init() {
	assigneeAddCmd.Flags().String("slug", "", "Assignee slug (default: derived from the name)")

	assigneeCmd.AddCommand(assigneeListCmd, assigneeAddCmd, assigneeRemoveCmd)
	rootCmd.AddCommand(assigneeCmd)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/output"
	"github.com/ALT-F4-LLC/pasfini/internal/render"
)

type listResult struct {
	Issues []*model.Issue `json:"issues"`
	Total  int            `json:"total"`
}

// issueFilter selects issues by room, status, type, assignee and title text.
type issueFilter struct {
	Room     string
	Status   string
	Type     string
	Assignee string
	Search   string
}

func (f issueFilter) validate() error {
	if f.Status != "" {
		if err := model.ValidateStatus(model.Status(f.Status)); err != nil {
			return err
		}
	}
	if f.Type != "" {
		if err := model.ValidateType(model.IssueType(f.Type)); err != nil {
			return err
		}
	}
	return nil
}

func (f issueFilter) match(i *model.Issue) bool {
	switch {
	case f.Room != "" && i.RoomSlug != f.Room:
		return false
	case f.Status != "" && string(i.Status) != f.Status:
		return false
	case f.Type != "" && string(i.Type) != f.Type:
		return false
	case f.Assignee != "" && i.AssigneeSlug != f.Assignee:
		return false
	case f.Search != "" && !strings.Contains(strings.ToLower(i.Title+" "+i.Description), strings.ToLower(f.Search)):
		return false
	}
	return true
}

func (f issueFilter) apply(issues []*model.Issue) []*model.Issue {
	out := make([]*model.Issue, 0, len(issues))
	for _, i := range issues {
		if f.match(i) {
			out = append(out, i)
		}
	}
	return out
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List issues",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		var f issueFilter
		f.Room, _ = cmd.Flags().GetString("room")
		f.Status, _ = cmd.Flags().GetString("status")
		f.Type, _ = cmd.Flags().GetString("type")
		f.Assignee, _ = cmd.Flags().GetString("assignee")
		f.Search, _ = cmd.Flags().GetString("search")
		board, _ := cmd.Flags().GetBool("board")
		limit, _ := cmd.Flags().GetInt("limit")

		if err := f.validate(); err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		if limit < 0 {
			return cmdErr(fmt.Errorf("--limit must not be negative"), output.ErrValidation)
		}

		all, err := st.ListIssues(ctx)
		if err != nil {
			return storeErr(err, "listing issues")
		}
		issues := f.apply(all)
		total := len(issues)
		if limit > 0 && len(issues) > limit {
			issues = issues[:limit]
		}

		var message string
		if !w.JSONMode {
			lk, err := loadLookup(ctx, st)
			if err != nil {
				return err
			}
			if board {
				rooms := make([]model.Room, 0, len(lk.Rooms))
				for _, r := range lk.Rooms {
					rooms = append(rooms, r)
				}
				message = render.RenderBoard(issues, rooms)
			} else {
				message = render.RenderIssueTable(issues, lk)
			}
			if len(issues) < total {
				message += fmt.Sprintf("\nShowing %d of %d issues.", len(issues), total)
			}
		}

		w.Success(listResult{Issues: issues, Total: total}, message)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("room", "r", "", "Filter by room slug")
	listCmd.Flags().StringP("status", "s", "", "Filter by status (open, done)")
	listCmd.Flags().StringP("type", "T", "", "Filter by type (reserve, todo)")
	listCmd.Flags().StringP("assignee", "a", "", "Filter by assignee slug")
	listCmd.Flags().String("search", "", "Filter by text in title or description")
	listCmd.Flags().BoolP("board", "b", false, "Show a board with one column per room")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum number of issues to show (0 for all)")
	issueCmd.AddCommand(listCmd)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

// statusCommand builds a command that moves issues to status.
func statusCommand(use, short string, status model.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <ref>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := getWriter(cmd)
			st := getStore(cmd)
			ctx := cmd.Context()

			changed := make([]*model.Issue, 0, len(args))
			for _, ref := range args {
				issue, err := resolveIssue(ctx, st, ref)
				if err != nil {
					return err
				}
				if issue.Status == status {
					w.Info("%s is already %s", issue.DisplayRef(), status.Label())
					changed = append(changed, issue)
					continue
				}
				issue.Status = status
				issue.UpdatedAt = st.Now()
				if err := st.PutIssue(ctx, issue); err != nil {
					return storeErr(err, "saving issue %s", issue.DisplayRef())
				}
				changed = append(changed, issue)
			}

			msg := fmt.Sprintf("%s %s", status.Glyph(), changed[0].DisplayRef())
			if len(changed) > 1 {
				msg = fmt.Sprintf("%s %d issues", status.Glyph(), len(changed))
			}
			w.Success(listResult{Issues: changed, Total: len(changed)}, msg+": "+status.Label())
			return nil
		},
	}
}

func init() {
	issueCmd.AddCommand(
		statusCommand("done", "Mark issues as lifted (levée)", model.StatusDone),
		statusCommand("reopen", "Mark issues as open again", model.StatusOpen),
	)
}

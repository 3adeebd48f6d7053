package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/output"
)

type deleteResult struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Photos int    `json:"photos"`
}

// confirm asks a yes/no question. It returns false without error when the
// user aborts.
func confirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Oui").
				Negative("Non").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
	}
	return ok, nil
}

var deleteCmd = &cobra.Command{
	Use:     "delete <ref>",
	Short:   "Delete an issue and its photos",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()
		force, _ := cmd.Flags().GetBool("force")

		issue, err := resolveIssue(ctx, st, args[0])
		if err != nil {
			return err
		}

		if !force {
			if w.JSONMode {
				return cmdErr(fmt.Errorf("deleting %s requires --force in JSON mode", issue.DisplayRef()), output.ErrValidation)
			}
			ok, err := confirm(
				fmt.Sprintf("Supprimer %s : %s ?", issue.DisplayRef(), issue.Title),
				fmt.Sprintf("%d photo(s) will be deleted with it.", len(issue.Photos)),
			)
			if err != nil {
				return err
			}
			if !ok {
				w.Info("Cancelled.")
				return nil
			}
		}

		if err := st.DeleteIssue(ctx, issue.ID); err != nil {
			return storeErr(err, "deleting issue")
		}
		w.Success(
			deleteResult{ID: issue.ID, Code: issue.Code, Photos: len(issue.Photos)},
			fmt.Sprintf("Deleted %s: %s", issue.DisplayRef(), issue.Title),
		)
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
	issueCmd.AddCommand(deleteCmd)
}

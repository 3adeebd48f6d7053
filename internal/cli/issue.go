package cli

import (
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

var issueCmd = &cobra.Command{
	Use:     "issue",
	Short:   "Manage réserves and to-dos",
	Aliases: []string{"i"},
}

// issueResult is the JSON payload of commands that return one issue.
type issueResult struct {
	Issue    *model.Issue     `json:"issue"`
	Photos   []*model.Photo   `json:"photos"`
	Rejected []photoRejection `json:"rejected,omitempty"`
}

func init() {
	rootCmd.AddCommand(issueCmd)
}

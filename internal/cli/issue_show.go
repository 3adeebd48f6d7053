package cli

import (
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/render"
)

var showCmd = &cobra.Command{
	Use:   "show <ref>",
	Short: "Show an issue with its photos",
	Long:  "Show an issue. <ref> is an issue code such as K3, a full id, or a unique id prefix.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		issue, err := resolveIssue(ctx, st, args[0])
		if err != nil {
			return err
		}
		photos, err := st.GetPhotosForIssue(ctx, issue.ID)
		if err != nil {
			return storeErr(err, "loading photos")
		}

		var message string
		if !w.JSONMode {
			lk, err := loadLookup(ctx, st)
			if err != nil {
				return err
			}
			message = render.RenderDetail(issue, photos, lk)
		}
		w.Success(issueResult{Issue: issue, Photos: photos}, message)
		return nil
	},
}

func init() {
	issueCmd.AddCommand(showCmd)
}

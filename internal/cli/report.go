package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/archive"
	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/render"
)

type reportResult struct {
	Markdown string          `json:"markdown"`
	Manifest *model.Manifest `json:"manifest"`
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the defect report as it appears in an export",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		raw, _ := cmd.Flags().GetBool("raw")

		snap, err := archive.TakeSnapshot(cmd.Context(), st, archive.ExportOptions{Now: st.Now(), Logger: getLogger(cmd)})
		if err != nil {
			return storeErr(err, "reading store")
		}
		md := archive.RenderReport(snap.Manifest, snap.LoadErrors)

		if w.JSONMode {
			w.Success(reportResult{Markdown: md, Manifest: snap.Manifest}, "")
			return nil
		}
		if raw {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		rendered, err := render.RenderMarkdown(md)
		if err != nil {
			getLogger(cmd).Debug("markdown rendering failed", "err", err)
		}
		w.Success(nil, rendered)
		return nil
	},
}

func init() {
	reportCmd.Flags().Bool("raw", false, "Print the Markdown source")
	rootCmd.AddCommand(reportCmd)
}

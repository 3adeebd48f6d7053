package cli

import (
	"bytes"
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/archive"
	"github.com/ALT-F4-LLC/pasfini/internal/output"
	"github.com/ALT-F4-LLC/pasfini/internal/sink"
)

type exportResult struct {
	*archive.ExportSummary
	Name     string `json:"name"`
	Location string `json:"location"`
	Size     int    `json:"size"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every issue, photo and room as a ZIP archive",
	Long: `Export writes a self-contained archive holding report.json, a human-readable
report.md and the photos under img/. By default the archive is saved in the
current directory (or PASFINI_EXPORT_DIR) as pasfini-reserves-YYYY-MM-DD.zip,
never overwriting an existing file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		cfg := getCfg(cmd)
		ctx := cmd.Context()

		dir, _ := cmd.Flags().GetString("out")
		toStdout, _ := cmd.Flags().GetBool("stdout")
		share, _ := cmd.Flags().GetBool("share")
		name, _ := cmd.Flags().GetString("name")

		if toStdout && share {
			return cmdErr(sink.ErrConflictingSinks, output.ErrValidation)
		}
		if toStdout && w.JSONMode {
			return cmdErr(fmt.Errorf("--stdout cannot be combined with --json"), output.ErrValidation)
		}
		if dir == "" {
			dir = cfg.ExportDir
		}
		opts := sink.Options{Dir: dir, Stdout: toStdout, Share: share}
		if share && cfg.ShareEnabled {
			s3, err := sink.NewS3Sink(ctx, cfg.Share)
			if err != nil {
				return cmdErr(fmt.Errorf("configuring share: %w", err), output.ErrUnsupported)
			}
			opts.S3 = s3
		}
		dst, err := sink.Select(opts)
		if err != nil {
			return cmdErr(err, codeFor(err))
		}
		if toStdout {
			dst = &sink.WriterSink{W: cmd.OutOrStdout(), File: stdoutFile(cmd)}
		}

		now := st.Now()
		snap, err := archive.TakeSnapshot(ctx, st, archive.ExportOptions{Now: now, Logger: getLogger(cmd)})
		if err != nil {
			return storeErr(err, "reading store")
		}
		var buf bytes.Buffer
		if err := snap.WriteArchive(&buf, now); err != nil {
			return cmdErr(fmt.Errorf("writing archive: %w", err), output.ErrGeneral)
		}

		if name == "" {
			name = sink.SuggestedName(now.Local())
		}
		location, err := dst.Deliver(ctx, name, buf.Bytes())
		if err != nil {
			return cmdErr(fmt.Errorf("delivering archive: %w", err), codeFor(err))
		}

		summary := snap.Summary()
		for _, id := range summary.Degraded {
			w.Warn("photos of issue %s could not be loaded and were left out", id)
		}
		if toStdout {
			return nil
		}

		result := exportResult{ExportSummary: summary, Name: name, Location: location, Size: buf.Len()}
		w.Success(result, fmt.Sprintf("Exported %d issue(s) and %d photo(s) to %s (%s)",
			summary.Issues, summary.Photos, location, humanize.Bytes(uint64(buf.Len()))))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "Directory to save the archive in")
	exportCmd.Flags().Bool("stdout", false, "Write the archive to stdout")
	exportCmd.Flags().Bool("share", false, "Upload the archive and print a shareable link")
	exportCmd.Flags().String("name", "", "Archive file name (default: pasfini-reserves-YYYY-MM-DD.zip)")
	rootCmd.AddCommand(exportCmd)
}

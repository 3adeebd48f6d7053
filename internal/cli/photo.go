package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/archive"
	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/sink"
)

var photoCmd = &cobra.Command{
	Use:   "photo",
	Short: "Work with issue photos",
}

type photoGetResult struct {
	Photo *model.Photo `json:"photo"`
	Path  string       `json:"path"`
}

var photoGetCmd = &cobra.Command{
	Use:   "get <photo-id>",
	Short: "Write a photo to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		thumb, _ := cmd.Flags().GetBool("thumb")
		out, _ := cmd.Flags().GetString("out")

		p, err := st.GetPhoto(ctx, args[0])
		if err != nil {
			return storeErr(err, "fetching photo %s", args[0])
		}
		data := p.Blob
		if thumb {
			data = p.Thumbnail
		}

		var dst sink.Sink
		name := fmt.Sprintf("%s.%s", p.ID, archive.ExtensionForMIME(p.MIMEType))
		switch out {
		case "-":
			dst = &sink.WriterSink{W: cmd.OutOrStdout(), File: stdoutFile(cmd)}
		case "":
			dst = &sink.FileSink{Dir: "."}
		default:
			dst = &sink.FileSink{Dir: filepath.Dir(out)}
			name = filepath.Base(out)
		}

		where, err := dst.Deliver(ctx, name, data)
		if err != nil {
			return cmdErr(err, codeFor(err))
		}
		if where == "-" {
			return nil
		}
		w.Success(photoGetResult{Photo: p, Path: where}, fmt.Sprintf("Wrote %s", where))
		return nil
	},
}

var photoRemoveCmd = &cobra.Command{
	Use:     "remove <issue-ref> <photo-id>",
	Short:   "Detach and delete a photo",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		issue, err := resolveIssue(ctx, st, args[0])
		if err != nil {
			return err
		}
		if err := st.RemovePhoto(ctx, issue.ID, args[1]); err != nil {
			return storeErr(err, "removing photo %s", args[1])
		}
		w.Success(struct {
			IssueID string `json:"issue_id"`
			PhotoID string `json:"photo_id"`
		}{issue.ID, args[1]}, fmt.Sprintf("Removed photo %s from %s", model.ShortID(args[1]), issue.DisplayRef()))
		return nil
	},
}

// stdoutFile returns os.Stdout when the command writes to it, so that
// terminal detection applies; nil when output was redirected in-process.
func stdoutFile(cmd *cobra.Command) *os.File {
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		return f
	}
	return nil
}

func init() {
	photoGetCmd.Flags().Bool("thumb", false, "Write the thumbnail instead of the full image")
	photoGetCmd.Flags().StringP("out", "o", "", "Output file, or \"-\" for stdout (default: <id>.<ext> in the current directory)")

	photoCmd.AddCommand(photoGetCmd, photoRemoveCmd)
	rootCmd.AddCommand(photoCmd)
}

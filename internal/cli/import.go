package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/archive"
	"github.com/ALT-F4-LLC/pasfini/internal/output"
	"github.com/ALT-F4-LLC/pasfini/internal/reconcile"
)

// chooseMode resolves the import mode from flags, prompting when neither
// was given.
func chooseMode(w *output.Writer, merge, replace bool) (reconcile.Mode, error) {
	switch {
	case merge && replace:
		return "", cmdErr(fmt.Errorf("--merge and --replace are mutually exclusive"), output.ErrValidation)
	case merge:
		return reconcile.Merge, nil
	case replace:
		return reconcile.Replace, nil
	case w.JSONMode:
		return "", cmdErr(fmt.Errorf("--merge or --replace is required in JSON mode"), output.ErrValidation)
	}

	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Comment importer cette archive ?").
				Options(
					huh.NewOption("Fusionner avec les données existantes", string(reconcile.Merge)),
					huh.NewOption("Remplacer toutes les données", string(reconcile.Replace)),
					huh.NewOption("Annuler", ""),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
	}
	return reconcile.Mode(choice), nil
}

var importCmd = &cobra.Command{
	Use:   "import <archive.zip>",
	Short: "Import an exported archive",
	Long: `Import reads an archive produced by export.

--replace erases every issue and photo first and takes rooms and assignees
from the archive. --merge keeps existing data: issues are written by id,
overwriting any issue with the same id, and rooms and assignees are only
added when their slug is new. Entries that cannot be imported are skipped
and reported; they never stop the import.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		merge, _ := cmd.Flags().GetBool("merge")
		replace, _ := cmd.Flags().GetBool("replace")
		yes, _ := cmd.Flags().GetBool("yes")

		f, err := os.Open(args[0])
		if err != nil {
			return cmdErr(fmt.Errorf("opening archive: %w", err), output.ErrNotFound)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return cmdErr(fmt.Errorf("reading archive: %w", err), output.ErrGeneral)
		}

		// Parse before asking anything so a bad file fails fast.
		bundle, err := archive.Read(f, info.Size(), archive.ReadOptions{})
		if err != nil {
			return cmdErr(err, codeFor(err))
		}

		mode, err := chooseMode(w, merge, replace)
		if err != nil {
			return err
		}
		if mode == "" {
			w.Info("Cancelled.")
			return nil
		}

		if mode == reconcile.Replace && !yes {
			if w.JSONMode {
				return cmdErr(fmt.Errorf("--replace erases existing data and requires --yes in JSON mode"), output.ErrValidation)
			}
			count, err := st.CountIssues(ctx)
			if err != nil {
				return storeErr(err, "counting issues")
			}
			ok, err := confirm(
				"Remplacer toutes les données ?",
				fmt.Sprintf("%d existing issue(s) and their photos will be erased.", count),
			)
			if err != nil {
				return err
			}
			if !ok {
				w.Info("Cancelled.")
				return nil
			}
		}

		res, err := reconcile.Apply(ctx, st, bundle, mode, reconcile.Options{Now: st.Now(), Logger: getLogger(cmd)})
		if err != nil {
			if res != nil {
				w.Warn("import stopped after %d issue(s)", res.Issues)
			}
			return storeErr(err, "importing")
		}

		for _, o := range res.Outcomes {
			if o.Status == archive.OutcomeSkipped {
				w.Warn("%s %s skipped: %s", o.Kind, o.Ref, o.Reason)
			} else {
				w.Info("%s %s %s: %s", o.Kind, o.Ref, o.Status, o.Reason)
			}
		}

		w.Success(res, formatImportSummary(res))
		return nil
	},
}

func formatImportSummary(res *reconcile.Result) string {
	parts := []string{
		fmt.Sprintf("%d issue(s)", res.Issues),
		fmt.Sprintf("%d photo(s)", res.Photos),
	}
	if res.Rooms > 0 {
		parts = append(parts, fmt.Sprintf("%d room(s)", res.Rooms))
	}
	if res.Assignees > 0 {
		parts = append(parts, fmt.Sprintf("%d assignee(s)", res.Assignees))
	}
	msg := fmt.Sprintf("Imported (%s) %s", res.Mode, strings.Join(parts, ", "))
	if n := res.Skipped(); n > 0 {
		msg += fmt.Sprintf("; %d skipped", n)
	}
	return msg
}

func init() {
	importCmd.Flags().Bool("merge", false, "Merge into existing data")
	importCmd.Flags().Bool("replace", false, "Erase existing data first")
	importCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(importCmd)
}

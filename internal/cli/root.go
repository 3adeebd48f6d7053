package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/archive"
	"github.com/ALT-F4-LLC/pasfini/internal/blob"
	"github.com/ALT-F4-LLC/pasfini/internal/config"
	"github.com/ALT-F4-LLC/pasfini/internal/output"
	"github.com/ALT-F4-LLC/pasfini/internal/sink"
	"github.com/ALT-F4-LLC/pasfini/internal/store"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type contextKey string

const (
	storeKey contextKey = "store"
	cfgKey   contextKey = "cfg"
)

// CmdError wraps an error with a machine-readable error code for structured output.
type CmdError struct {
	Err  error
	Code output.ErrorCode
}

func (e *CmdError) Error() string { return e.Err.Error() }

func (e *CmdError) Unwrap() error { return e.Err }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

// storeErr wraps a store failure with a code derived from its type.
func storeErr(err error, format string, args ...any) *CmdError {
	return cmdErr(fmt.Errorf(format+": %w", append(args, err)...), codeFor(err))
}

// codeFor classifies errors returned by the domain packages.
func codeFor(err error) output.ErrorCode {
	var (
		ce          *CmdError
		storageErr  *store.StorageError
		malformed   *archive.MalformedArchiveError
		decodeErr   *blob.DecodeError
		unsupported *sink.UnsupportedError
	)
	switch {
	case errors.As(err, &ce):
		return ce.Code
	case errors.Is(err, store.ErrNotFound):
		return output.ErrNotFound
	case errors.As(err, &storageErr):
		return output.ErrStorage
	case errors.As(err, &malformed), errors.As(err, &decodeErr), errors.Is(err, sink.ErrConflictingSinks):
		return output.ErrValidation
	case errors.As(err, &unsupported):
		return output.ErrUnsupported
	default:
		return output.ErrGeneral
	}
}

var rootCmd = &cobra.Command{
	Use:     "pasfini",
	Short:   "Local-first construction defect list",
	Long:    "pasfini keeps a list of réserves (construction defects) and to-dos per room, with photos, and exchanges them as self-contained ZIP archives.",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve()
		if err != nil {
			return err
		}

		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)

		if _, ok := cmd.Annotations["skipDB"]; ok {
			cmd.SetContext(ctx)
			return nil
		}

		if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
			return cmdErr(
				fmt.Errorf("no pasfini database found, run 'pasfini init' to create one"),
				output.ErrNotFound,
			)
		}

		st, err := store.Open(cfg.DBPath, cfg.KVPath, store.WithLogger(getLogger(cmd)))
		if err != nil {
			return storeErr(err, "opening store")
		}

		opened = st
		cmd.SetContext(context.WithValue(ctx, storeKey, st))
		return nil
	},
}

// opened is the store of the running command. It is closed by execute so
// that a failing command does not leak the handle.
var opened *store.Store

func closeStore() error {
	if opened == nil {
		return nil
	}
	err := opened.Close()
	opened = nil
	return err
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug details to stderr")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func getWriter(cmd *cobra.Command) *output.Writer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	verboseMode, _ := cmd.Flags().GetBool("verbose")
	w := output.New(jsonMode, quietMode, verboseMode)
	w.Stdout = cmd.OutOrStdout()
	w.Stderr = cmd.ErrOrStderr()
	return w
}

func getLogger(cmd *cobra.Command) *slog.Logger {
	return getWriter(cmd).Logger()
}

func getCfg(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey).(*config.Config)
	return cfg
}

func getStore(cmd *cobra.Command) *store.Store {
	st, _ := cmd.Context().Value(storeKey).(*store.Store)
	return st
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	return execute(rootCmd)
}

func execute(root *cobra.Command) int {
	err := root.Execute()
	if cerr := closeStore(); err == nil && cerr != nil {
		err = cmdErr(fmt.Errorf("closing store: %w", cerr), output.ErrStorage)
	}
	if err != nil {
		jsonMode, _ := root.PersistentFlags().GetBool("json")
		quietMode, _ := root.PersistentFlags().GetBool("quiet")
		w := output.New(jsonMode, quietMode, false)
		w.Stdout = root.OutOrStdout()
		w.Stderr = root.ErrOrStderr()

		var ce *CmdError
		if errors.As(err, &ce) {
			return w.Error(ce.Err, ce.Code)
		}
		return w.Error(err, codeFor(err))
	}
	return output.ExitSuccess
}

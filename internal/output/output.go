package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/pasfini/internal/render"
)

// Writer handles output for a command, dispatching between JSON and
// human-readable formats based on mode flags.
type Writer struct {
	JSONMode    bool
	QuietMode   bool
	VerboseMode bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// New creates a Writer configured by the given mode flags.
// Data output goes to os.Stdout; diagnostics go to os.Stderr.
func New(jsonMode, quietMode, verboseMode bool) *Writer {
	return &Writer{
		JSONMode:    jsonMode,
		QuietMode:   quietMode,
		VerboseMode: verboseMode,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// Logger returns a structured logger writing to Stderr. Verbose mode logs
// at debug level, quiet mode only errors, and the default is warnings. In
// JSON mode records are emitted as JSON lines so stderr stays parseable.
func (w *Writer) Logger() *slog.Logger {
	level := slog.LevelWarn
	switch {
	case w.VerboseMode:
		level = slog.LevelDebug
	case w.QuietMode:
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if w.JSONMode {
		return slog.New(slog.NewJSONHandler(w.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(w.Stderr, opts))
}

// Success renders a successful result. In JSON mode the data is wrapped in a
// success envelope written to Stdout. In human mode the message is printed to
// Stdout.
func (w *Writer) Success(data any, message string) {
	if w.JSONMode {
		writeJSONSuccess(w.Stdout, data, message)
		return
	}
	writeHumanSuccess(w.Stdout, message)
}

// Error renders an error. In JSON mode the error is wrapped in an error
// envelope written to Stdout. In human mode the error is printed to Stderr
// with an "Error: " prefix. The corresponding exit code is returned so the
// caller can pass it to os.Exit.
func (w *Writer) Error(err error, code ErrorCode) int {
	if w.JSONMode {
		writeJSONError(w.Stdout, err, code)
	} else {
		writeHumanError(w.Stderr, err)
	}
	return ExitCodeForError(code)
}

// Info writes an informational message to Stderr. In quiet mode or JSON mode,
// Info is a no-op.
func (w *Writer) Info(format string, args ...any) {
	if w.QuietMode || w.JSONMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if render.ColorsEnabled() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		fmt.Fprintf(w.Stderr, "%s %s\n", style.Render("ℹ"), style.Render(msg))
	} else {
		fmt.Fprintln(w.Stderr, msg)
	}
}

// Warn writes a warning to Stderr. Warnings are emitted in human mode even
// when quiet, and suppressed in JSON mode where the envelope carries them.
func (w *Writer) Warn(format string, args ...any) {
	if w.JSONMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if render.ColorsEnabled() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
		fmt.Fprintf(w.Stderr, "%s %s %s\n", style.Render("⚠"), style.Render("Warning:"), msg)
	} else {
		fmt.Fprintf(w.Stderr, "Warning: %s\n", msg)
	}
}

// Package sink delivers a finished archive somewhere the user can reach it:
// a file in a directory, standard output, or a shared S3 link.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// UnsupportedError reports that no delivery method is available in the
// current environment.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string {
	return "delivery unsupported: " + e.Reason
}

// ErrConflictingSinks is returned when more than one delivery method is
// requested.
var ErrConflictingSinks = errors.New("--stdout and --share are mutually exclusive")

// IsUnsupported reports whether err is or wraps an UnsupportedError.
func IsUnsupported(err error) bool {
	var u *UnsupportedError
	return errors.As(err, &u)
}

// SuggestedName returns the archive file name for an export taken at t,
// e.g. "pasfini-reserves-2026-04-02.zip".
func SuggestedName(t time.Time) string {
	return "pasfini-reserves-" + t.Format("2006-01-02") + ".zip"
}

// Sink delivers a named archive and returns where it ended up: a path, a
// URL, or "-" for standard output.
type Sink interface {
	Deliver(ctx context.Context, name string, data []byte) (string, error)
}

// FileSink writes archives into Dir. Existing files are never overwritten;
// a numeric suffix is added instead.
type FileSink struct {
	Dir string
}

// Deliver writes data to Dir/name, or Dir/name-2.zip and so on when taken.
func (s *FileSink) Deliver(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid archive name %q", name)
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", path, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("writing %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("closing %s: %w", path, err)
		}
		return path, nil
	}
}

// WriterSink streams archives to W. When File is set and refers to a
// terminal, delivery is refused rather than dumping binary onto it.
type WriterSink struct {
	W    io.Writer
	File *os.File
}

// NewStdoutSink returns a WriterSink bound to os.Stdout.
func NewStdoutSink() *WriterSink {
	return &WriterSink{W: os.Stdout, File: os.Stdout}
}

// Deliver copies data to the writer.
func (s *WriterSink) Deliver(ctx context.Context, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.File != nil && isTerminal(s.File) {
		return "", &UnsupportedError{Reason: "refusing to write an archive to a terminal; redirect stdout or use --out"}
	}
	if _, err := s.W.Write(data); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}
	return "-", nil
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Options selects a sink.
type Options struct {
	// Dir is the download directory. Used when neither Stdout nor Share
	// is set.
	Dir    string
	Stdout bool
	Share  bool

	// S3 is the share sink. Nil when sharing is not configured.
	S3 *S3Sink
}

// Select returns the sink matching opts, or an UnsupportedError when the
// requested method is not available.
func Select(opts Options) (Sink, error) {
	switch {
	case opts.Stdout && opts.Share:
		return nil, ErrConflictingSinks
	case opts.Share:
		if opts.S3 == nil {
			return nil, &UnsupportedError{Reason: "sharing is not configured; set PASFINI_SHARE_S3_BUCKET"}
		}
		return opts.S3, nil
	case opts.Stdout:
		return NewStdoutSink(), nil
	default:
		return &FileSink{Dir: opts.Dir}, nil
	}
}

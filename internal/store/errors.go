package store

import (
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/pasfini/internal/db"
)

// ErrNotFound is returned when a requested issue or photo does not exist.
var ErrNotFound = db.ErrNotFound

// StorageError reports a failed durable-storage operation. The store never
// retries; callers decide whether to retry, abort or prompt.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// wrap converts a tier error into the facade's error surface. Not-found
// passes through untouched so callers can test it with errors.Is.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

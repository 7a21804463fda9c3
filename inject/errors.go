package inject

import (
	"errors"
	"fmt"
	"path/filepath"
)

// PreconditionError reports a missing prerequisite of the whole run, such
// as an absent platform directory or Xcode project. It aborts the run.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string { return e.Err.Error() }
func (e *PreconditionError) Unwrap() error { return e.Err }

func precondition(format string, args ...any) error {
	return &PreconditionError{Err: fmt.Errorf(format, args...)}
}

// IsPrecondition reports whether err is or wraps a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// DocumentError reports a problem confined to one translation document.
// The document is skipped and the run continues.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", filepath.Base(e.Path), e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

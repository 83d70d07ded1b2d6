package services

import (
	"errors"
	"fmt"

	"manuscript-review-api/store"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrStorageFailure         = errors.New("storage failure")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvalidInput           = errors.New("invalid input")
)

// WorkflowError carries one of the sentinel kinds plus a reason suitable for
// showing to the caller.
type WorkflowError struct {
	Kind   error
	Reason string
}

func (e *WorkflowError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *WorkflowError) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) error {
	return &WorkflowError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// fromStore maps repository errors onto workflow kinds. Errors that are
// already workflow errors pass through.
func fromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var wf *WorkflowError
	switch {
	case errors.As(err, &wf):
		return err
	case errors.Is(err, store.ErrNotFound):
		return newError(ErrNotFound, "%s not found", what)
	case errors.Is(err, store.ErrConcurrentModification):
		return newError(ErrConcurrentModification, "%s was modified concurrently", what)
	}
	return &WorkflowError{Kind: ErrStorageFailure, Reason: err.Error()}
}

// Reason returns the human-readable part of a workflow error.
func Reason(err error) string {
	var wf *WorkflowError
	if errors.As(err, &wf) && wf.Reason != "" {
		return wf.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

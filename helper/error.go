package helper

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Components join a kind with the
// underlying cause via Kind so transports can map them to responses.
var (
	ErrUnsupportedInput = errors.New("unsupported input")
	ErrPrecondition     = errors.New("precondition violation")
	ErrNotFound         = errors.New("not found")
	ErrProvider         = errors.New("capability provider failure")
	ErrStorage          = errors.New("storage failure")
)

// NewError wraps err with the operation that failed.
func NewError(operation string, err error) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	return fmt.Errorf("%s: %w", operation, err)
}

type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

// Kind marks err with one of the error kinds above.
// The message stays the one of err, errors.Is matches both.
func Kind(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return &kindError{kind: kind, cause: err}
}

// KindOf returns the first error kind carried by err or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrUnsupportedInput, ErrPrecondition, ErrNotFound, ErrProvider, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidPath       = errors.New("path is not valid utf8")
	ErrInvalidDepth      = errors.New("forced depth must be between 0 and 4")
	ErrFloatDecode       = errors.New("floating-point decode failed")
	ErrIntegerDecode     = errors.New("integer decode failed")
	ErrDepthMismatch     = errors.New("engine ignored forced depth")
	ErrInvalidAllocation = errors.New("invalid engine allocation")
)

// DecodeError is a failed engine call. Kind is one of the sentinel errors
// above and is what errors.Is matches against.
type DecodeError struct {
	Op     string
	Kind   error
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

func newDecodeError(op string, kind error, cause error) *DecodeError {
	de := &DecodeError{Op: op, Kind: kind}
	if cause != nil {
		de.Reason = cause.Error()
	}
	return de
}

package utils

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can pick a recovery path without string matching.
type Kind string

const (
	// KindTransport covers unreachable or unhealthy backends and non-2xx replies.
	KindTransport Kind = "transport"
	// KindDataIntegrity covers malformed curves returned by an otherwise healthy backend.
	KindDataIntegrity Kind = "data_integrity"
	// KindInvalidInput covers caller mistakes such as unknown indications.
	KindInvalidInput Kind = "invalid_input"
)

// Error wraps an operation, failure kind, human-facing message, and underlying error.
type Error struct {
	Op   string
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError constructs an Error.
func NewError(op string, kind Kind, msg string, err error) error {
	return &Error{Op: op, Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

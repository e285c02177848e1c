// ABOUTME: Error taxonomy for backend calls: transport failures and malformed responses
// ABOUTME: A single *Error type matches the ErrTransport / ErrMalformedResponse sentinels

package backend

import (
	"errors"
	"fmt"
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrTransport         = errors.New("backend transport failure")
	ErrMalformedResponse = errors.New("backend response malformed")
)

// Kind classifies a backend failure.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error describes a failed backend operation.
type Error struct {
	Kind       Kind
	Op         string // chat, reset, load_context, list_contexts, ping
	StatusCode int    // set for non-2xx responses
	Detail     string // error text extracted from the response body, if any
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrMalformedResponse:
		return e.Kind == KindMalformed
	}
	return false
}

func transportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func malformedError(op string, err error) *Error {
	return &Error{Kind: KindMalformed, Op: op, Err: err}
}

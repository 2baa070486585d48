package comdirect

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind int

// Error kinds.
const (
	// KindBadState means an operation was invoked while its precondition was
	// unmet. No network call is made in that case.
	KindBadState Kind = iota
	// KindInternal means URL or request construction failed. This indicates a
	// programming defect and should never surface in production.
	KindInternal
	// KindHTTPStatus means the server answered with a non-2xx status.
	KindHTTPStatus
	// KindTransport means the request never completed at the network level.
	KindTransport
	// KindParse means a payload did not match its expected shape.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindBadState:
		return "bad state"
	case KindInternal:
		return "internal"
	case KindHTTPStatus:
		return "http status"
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// ErrActivationUnverified marks the case where the session TAN activation
// itself succeeded but the response body could not be parsed. It must not be
// counted as a wrong-TAN attempt.
var ErrActivationUnverified = errors.New("session TAN activated but response could not be parsed")

// Error is the uniform error value reported by all engine operations. It may
// carry an HTTP status and a wrapped cause.
type Error struct {
	Kind   Kind
	Msg    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	s := e.Msg
	if s == "" {
		s = e.Kind.String()
	}
	if e.Status != 0 {
		s += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is or wraps an engine *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func errBadState(msg string) *Error {
	return &Error{Kind: KindBadState, Msg: msg}
}

func errInternal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: cause}
}

func errHTTPStatus(status int, cause error) *Error {
	return &Error{Kind: KindHTTPStatus, Msg: "unexpected HTTP status", Status: status, Err: cause}
}

func errTransport(cause error) *Error {
	return &Error{Kind: KindTransport, Msg: "transport failure", Err: cause}
}

func errParse(msg string, cause error) *Error {
	return &Error{Kind: KindParse, Msg: msg, Err: cause}
}

package errors

import (
	"errors"
	"fmt"
)

// Type classifies engine errors. Only credential and transport failures are
// surfaced as Go errors; pacing, stagnation and auth rejections are modeled
// as crawl outcomes because they are expected and carry partial data.
type Type string

const (
	TypeCredential Type = "credential"
	TypeTransport  Type = "transport"
	TypeExtraction Type = "extraction"
	TypeUnknown    Type = "unknown"
)

// Error is a typed engine error wrapping an underlying cause.
type Error struct {
	Type    Type
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s error: %s", e.Op, e.Type, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewCredential reports an undecryptable or malformed credential blob. This
// is distinct from an expired session, which only shows up as an AuthFailed
// crawl outcome after a live authentication attempt.
func NewCredential(op, message string, err error) *Error {
	return &Error{Type: TypeCredential, Op: op, Message: message, Err: err}
}

// NewTransport reports a navigation or network level failure. Transport
// errors abort the invocation; no partial records are salvaged because the
// page state is presumed inconsistent.
func NewTransport(op, message string, err error) *Error {
	return &Error{Type: TypeTransport, Op: op, Message: message, Err: err}
}

// TypeOf returns the classified type of err, or TypeUnknown.
func TypeOf(err error) Type {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return TypeUnknown
}

// IsCredential reports whether err is a credential error.
func IsCredential(err error) bool {
	return TypeOf(err) == TypeCredential
}

// IsTransport reports whether err is a transport error.
func IsTransport(err error) bool {
	return TypeOf(err) == TypeTransport
}

// IsRetryable reports whether the consuming layer may retry the failed
// invocation. Credential errors will fail the same way every time until the
// caller supplies a new blob or key.
func IsRetryable(err error) bool {
	switch TypeOf(err) {
	case TypeTransport:
		return true
	default:
		return false
	}
}

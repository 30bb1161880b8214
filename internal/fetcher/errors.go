package fetcher

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Error kinds surfaced by the fetchers. Match them with errors.Is.
var (
	ErrInvalidURL           = errors.New("invalid url format")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTimeout              = errors.New("request timed out")
	ErrNetwork              = errors.New("network error")
	ErrUnexpectedResponse   = errors.New("unexpected response shape")
	ErrCanceled             = errors.New("request canceled")
)

// Error is a classified fetch failure. Message is safe to show to a user
// (it holds the server's auth message for ErrAuthenticationFailed); Err keeps
// the underlying cause for logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds a classified error.
func NewError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// KindOf returns the classified kind of err, or nil when err is not a fetch error.
func KindOf(err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return nil
}

// AuthMessage returns the server supplied message of an authentication failure.
func AuthMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) && errors.Is(fe.Kind, ErrAuthenticationFailed) {
		return fe.Message
	}
	return ""
}

// classifyTransport maps an error returned by http.Client.Do onto a kind.
// parent is the caller's context, used to tell a caller cancel from our own
// per-call deadline.
func classifyTransport(parent context.Context, err error) *Error {
	if errors.Is(parent.Err(), context.Canceled) {
		return NewError(ErrCanceled, "", err)
	}
	if isTimeout(err) {
		return NewError(ErrTimeout, "", err)
	}
	// DNS failures, refused connections, resets and TLS errors all land here.
	return NewError(ErrNetwork, "", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") || strings.Contains(s, "deadline")
}

package errno

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by how callers must react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindAuthRequired
	KindNotFound
	KindConflict
	KindUpstreamUnavailable
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindAuthRequired:
		return "auth_required"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindProtocol:
		return "protocol_error"
	default:
		return "internal"
	}
}

// Errno is an error carrying the HTTP status it should be rendered with.
type Errno struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Errno) Unwrap() error { return e.Err }

// Is matches any *Errno of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the caller may try the same operation again.
func (e *Errno) Retryable() bool {
	return e.Kind == KindUpstreamUnavailable
}

var (
	ErrInternal            = &Errno{Kind: KindInternal, Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrInvalidRequest      = &Errno{Kind: KindInvalidRequest, Code: http.StatusBadRequest, Message: "invalid request"}
	ErrAuthRequired        = &Errno{Kind: KindAuthRequired, Code: http.StatusUnauthorized, Message: "Authentication required"}
	ErrNotFound            = &Errno{Kind: KindNotFound, Code: http.StatusNotFound, Message: "not found"}
	ErrConflict            = &Errno{Kind: KindConflict, Code: http.StatusConflict, Message: "conflict"}
	ErrUpstreamUnavailable = &Errno{Kind: KindUpstreamUnavailable, Code: http.StatusBadGateway, Message: "generation service unavailable"}
	ErrProtocol            = &Errno{Kind: KindProtocol, Code: http.StatusInternalServerError, Message: "malformed response from generation service"}
)

// New copies base with a different message.
func New(base *Errno, message string) *Errno {
	return &Errno{Kind: base.Kind, Code: base.Code, Message: message}
}

// Wrap copies base with a message and an underlying cause.
func Wrap(base *Errno, message string, err error) *Errno {
	if message == "" {
		message = base.Message
	}
	return &Errno{Kind: base.Kind, Code: base.Code, Message: message, Err: err}
}

// WithCode copies base overriding the HTTP status.
func WithCode(base *Errno, code int, message string) *Errno {
	return &Errno{Kind: base.Kind, Code: code, Message: message}
}

// From extracts an *Errno from err's chain.
func From(err error) (*Errno, bool) {
	var e *Errno
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable reports whether err is an *Errno that may be retried.
func IsRetryable(err error) bool {
	e, ok := From(err)
	return ok && e.Retryable()
}

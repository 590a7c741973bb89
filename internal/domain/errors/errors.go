// Package errors defines the error taxonomy for message delivery and persistence.
package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/janhq/jan-chat-client/internal/domain/status"
)

// Kind classifies a ChatError.
type Kind string

const (
	// KindTransport covers network and status failures. Recoverable by fallback.
	KindTransport Kind = "transport_error"
	// KindContent is an explicit error payload from the remote service. Recoverable by fallback.
	KindContent Kind = "content_error"
	// KindStore is a local persistence failure. Degrades to empty/no-op.
	KindStore Kind = "store_error"
	// KindProtocol is a malformed inbound frame or response. Ignored when
	// unsolicited; a failed attempt when it answers a request.
	KindProtocol Kind = "protocol_violation"
)

// ChatError is the error type returned by transports and stores.
type ChatError struct {
	Kind    Kind   `json:"kind"`
	Op      string `json:"op,omitempty"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ChatError) Unwrap() error {
	return e.Cause
}

// Severity maps the error kind to a handling policy. A malformed reply is a
// failed attempt, so it falls back like a transport error.
func (e *ChatError) Severity() status.ErrorSeverity {
	switch e.Kind {
	case KindTransport, KindContent, KindProtocol:
		return status.ErrorSeverityFallback
	case KindStore:
		return status.ErrorSeveritySkippable
	default:
		return status.ErrorSeverityFatal
	}
}

// NewTransportError wraps a network-level failure.
func NewTransportError(op string, cause error) *ChatError {
	return &ChatError{Kind: KindTransport, Op: op, Cause: cause}
}

// NewTransportStatusError reports a non-success response status.
func NewTransportStatusError(op string, statusCode int, message string) *ChatError {
	return &ChatError{Kind: KindTransport, Op: op, Status: statusCode, Message: message}
}

// NewContentError reports an explicit error payload from the remote service.
func NewContentError(op, message string) *ChatError {
	return &ChatError{Kind: KindContent, Op: op, Message: message}
}

// NewStoreError wraps a persistence failure.
func NewStoreError(op string, cause error) *ChatError {
	return &ChatError{Kind: KindStore, Op: op, Cause: cause}
}

// NewProtocolViolation reports a malformed frame or response body.
func NewProtocolViolation(op, message string) *ChatError {
	return &ChatError{Kind: KindProtocol, Op: op, Message: message}
}

// KindOf returns the kind of the first ChatError in err's chain, or "" if none.
func KindOf(err error) Kind {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsKind reports whether err carries a ChatError of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// SeverityOf classifies any error. A bare context cancellation or deadline is
// fatal: the caller gave up. Other errors outside the taxonomy are treated as
// transport failures so the caller still falls back.
func SeverityOf(err error) status.ErrorSeverity {
	if err == nil {
		return ""
	}
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Severity()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.ErrorSeverityFatal
	}
	return status.ErrorSeverityFallback
}

// StatusCode extracts the response status from err, or 0.
func StatusCode(err error) int {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}

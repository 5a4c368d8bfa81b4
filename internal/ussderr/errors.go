package ussderr

import (
	"errors"
	"fmt"
)

// Kind classifies every error the gateway can return to a caller.
type Kind string

const (
	KindInvalidCode      Kind = "INVALID_CODE"
	KindSessionActive    Kind = "SESSION_ACTIVE"
	KindSessionBusy      Kind = "SESSION_BUSY"
	KindNoActiveSession  Kind = "NO_ACTIVE_SESSION"
	KindNotSupported     Kind = "NOT_SUPPORTED"
	KindPermissionDenied Kind = "PERMISSION_ERROR"
	KindUssdFailed       Kind = "USSD_FAILED"
	KindTimeout          Kind = "TIMEOUT"
	KindCancelled        Kind = "SESSION_CANCELLED"
	KindUnknown          Kind = "UNKNOWN_ERROR"
)

// Telephony failure codes reported by interactive backends.
const (
	FailureUnknown        = -1
	FailureNoService      = 1
	FailureRadioOff       = 2
	FailureBusy           = 3
	FailureErrorInRequest = 4
)

// Error is the typed error returned across the gateway's package boundaries.
// FailureCode is only meaningful for KindUssdFailed.
type Error struct {
	Kind        Kind
	Message     string
	FailureCode int
	cause       error
}

func (e *Error) Error() string {
	if e.Kind == KindUssdFailed {
		return fmt.Sprintf("%s: %s (failure code %d)", e.Kind, e.Message, e.FailureCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is match on Kind so callers can compare against the
// package sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping a platform cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// UssdFailed creates an Error carrying a raw telephony failure code.
func UssdFailed(code int) *Error {
	return &Error{
		Kind:        KindUssdFailed,
		Message:     FailureMessage(code),
		FailureCode: code,
	}
}

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FailureMessage maps a telephony failure code to a human-readable message.
func FailureMessage(code int) string {
	switch code {
	case FailureNoService:
		return "no cellular service available"
	case FailureRadioOff:
		return "radio is off"
	case FailureBusy:
		return "telephony service is busy"
	case FailureErrorInRequest:
		return "error in request"
	default:
		return "unknown telephony failure"
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCode      = New(KindInvalidCode, "invalid ussd code")
	ErrSessionActive    = New(KindSessionActive, "session already active")
	ErrSessionBusy      = New(KindSessionBusy, "request already pending for session")
	ErrNoActiveSession  = New(KindNoActiveSession, "no active ussd session")
	ErrNotSupported     = New(KindNotSupported, "operation not supported on this platform")
	ErrPermissionDenied = New(KindPermissionDenied, "telephony permission denied")
	ErrTimeout          = New(KindTimeout, "ussd request timed out")
	ErrCancelled        = New(KindCancelled, "ussd session cancelled")
)

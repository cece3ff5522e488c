// pkg/driver/errors.go
package driver

import (
	"errors"
	"fmt"
)

// ErrorKind is a machine-readable error classification carried into ActionResult
type ErrorKind string

const (
	// Transport
	KindTimeout          ErrorKind = "TIMEOUT"
	KindRefused          ErrorKind = "CONNECTION_REFUSED"
	KindTransportUnknown ErrorKind = "TRANSPORT_ERROR"

	// Framing
	KindTooShort         ErrorKind = "FRAME_TOO_SHORT"
	KindInvalidFraming   ErrorKind = "INVALID_FRAMING"
	KindChecksumMismatch ErrorKind = "CHECKSUM_MISMATCH"

	// Protocol / local misuse
	KindNotOpen                  ErrorKind = "RECEIPT_NOT_OPEN"
	KindAlreadyOpen              ErrorKind = "RECEIPT_ALREADY_OPEN"
	KindReceiptOpenDuringZReport ErrorKind = "RECEIPT_OPEN_DURING_Z_REPORT"
	KindUnknownResponse          ErrorKind = "UNKNOWN_RESPONSE"
	KindRejected                 ErrorKind = "PRINTER_REJECTED"
	KindNotConnected             ErrorKind = "NOT_CONNECTED"

	// Configuration
	KindNotConfigured ErrorKind = "NOT_CONFIGURED"
	KindInvalidRange  ErrorKind = "INVALID_RANGE"

	// Dispatch
	KindUnimplementedAction ErrorKind = "UNIMPLEMENTED_ACTION"
	KindAccessDenied        ErrorKind = "ACCESS_DENIED"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindInvalidRequest      ErrorKind = "INVALID_REQUEST"

	// Delegates (ePOS over HTTP, IoT proxy)
	KindDelegate ErrorKind = "DELEGATE_ERROR"

	KindInternal ErrorKind = "INTERNAL_ERROR"
)

// ClassifiedError is implemented by every error of the taxonomy below
type ClassifiedError interface {
	error
	ErrorKind() ErrorKind
	Retryable() bool
}

// TransportError is a socket, serial or USB level failure
type TransportError struct {
	Kind ErrorKind
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Addr, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) ErrorKind() ErrorKind { return e.Kind }

// Retryable is always true: the link may come back, the payload is fine.
func (e *TransportError) Retryable() bool { return true }

// FrameError reports a malformed fiscal frame
type FrameError struct {
	Kind     ErrorKind
	Length   int
	Expected byte
	Received byte
}

func (e *FrameError) Error() string {
	switch e.Kind {
	case KindChecksumMismatch:
		return fmt.Sprintf("checksum mismatch: expected 0x%02X, received 0x%02X", e.Expected, e.Received)
	case KindTooShort:
		return fmt.Sprintf("frame too short: %d bytes", e.Length)
	default:
		return fmt.Sprintf("invalid framing (%d bytes)", e.Length)
	}
}

func (e *FrameError) ErrorKind() ErrorKind { return e.Kind }
func (e *FrameError) Retryable() bool      { return false }

// ProtocolError is a state-machine violation or a printer-level rejection
type ProtocolError struct {
	Kind   ErrorKind
	Op     string
	State  string
	Detail string
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.State != "" {
		msg += fmt.Sprintf(" (state=%s)", e.State)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ProtocolError) ErrorKind() ErrorKind { return e.Kind }
func (e *ProtocolError) Retryable() bool      { return false }

// ConfigError reports missing or out-of-range configuration and payload values
type ConfigError struct {
	Kind   ErrorKind
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Field, e.Kind, e.Detail)
}

func (e *ConfigError) ErrorKind() ErrorKind { return e.Kind }
func (e *ConfigError) Retryable() bool      { return false }

// DispatchError is returned by the action dispatcher before any driver is reached
type DispatchError struct {
	Kind     ErrorKind
	Identity string
	Action   string
	Detail   string
}

func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("%s: action=%q printer=%q", e.Kind, e.Action, e.Identity)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DispatchError) ErrorKind() ErrorKind { return e.Kind }
func (e *DispatchError) Retryable() bool      { return false }

// DelegateError is a failure of an HTTP ePOS printer or an IoT proxy.
// StatusCode is zero for network level failures.
type DelegateError struct {
	Target     string
	StatusCode int
	Err        error
}

func (e *DelegateError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http_error: %d", e.Target, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e *DelegateError) Unwrap() error        { return e.Err }
func (e *DelegateError) ErrorKind() ErrorKind { return KindDelegate }

// Retryable reports server side and network failures as retryable, client errors not.
func (e *DelegateError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// KindOf returns the error kind of err, or KindInternal for unclassified errors
func KindOf(err error) ErrorKind {
	var ce ClassifiedError
	if errors.As(err, &ce) {
		return ce.ErrorKind()
	}
	return KindInternal
}

// Retryable reports whether the caller may retry the same request unchanged
func Retryable(err error) bool {
	var ce ClassifiedError
	if errors.As(err, &ce) {
		return ce.Retryable()
	}
	return false
}

// IsKind checks whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// NewTransportError builds a transport error
func NewTransportError(kind ErrorKind, op, addr string, err error) *TransportError {
	return &TransportError{Kind: kind, Op: op, Addr: addr, Err: err}
}

// NewProtocolError builds a protocol error
func NewProtocolError(kind ErrorKind, op, state, detail string) *ProtocolError {
	return &ProtocolError{Kind: kind, Op: op, State: state, Detail: detail}
}

// NewConfigError builds a configuration error
func NewConfigError(kind ErrorKind, field, detail string) *ConfigError {
	return &ConfigError{Kind: kind, Field: field, Detail: detail}
}

// NewDispatchError builds a dispatch error
func NewDispatchError(kind ErrorKind, identity, action, detail string) *DispatchError {
	return &DispatchError{Kind: kind, Identity: identity, Action: action, Detail: detail}
}

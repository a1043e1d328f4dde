// Package errors provides domain-specific error types for mininet.
//
// These types carry structured context (operation, address, retryability)
// that helps callers decide how to handle failures and provides better
// diagnostics than plain string wrapping.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrClosed         = errors.New("endpoint closed")
	ErrNotStarted     = errors.New("endpoint not started")
	ErrAlreadyStarted = errors.New("endpoint already started")
	ErrInvalidIndex   = errors.New("invalid connection index")
	ErrConnClosed     = errors.New("connection closed")
	ErrWouldBlock     = errors.New("operation would block")
	ErrInvalidAddress = errors.New("invalid IPv4 address")
	ErrNotSupported   = errors.New("operation not supported on this platform")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a socket operation.
type NetworkError struct {
	Op        string // "socket", "bind", "listen", "accept", "connect", "send", "recv", ...
	Addr      string // network address involved (may be empty)
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	var s string
	if e.Addr != "" {
		s = fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	} else {
		s = fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.  A nil err yields nil.
func Wrap(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsWouldBlock reports whether err signals a non-blocking operation that
// could not complete immediately.
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}

// classifyRetryable inspects standard library and errno error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWouldBlock) {
		return true
	}
	if temp, ok := errnoTemporary(err); ok {
		return temp
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use mininet/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }

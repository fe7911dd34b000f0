// Package ferrors gives the platform's error taxonomy (spec §7) a concrete
// type: every fatal/non-fatal decision in the daemons checks a PlatformError's
// Kind rather than matching on ad-hoc sentinel values.
package ferrors

import (
	"errors"
	"fmt"
)

// Kind is one of the abstract error kinds from the design's taxonomy.
type Kind string

const (
	// KindTransientIO is a retryable I/O failure; never surfaced, just retried next tick.
	KindTransientIO Kind = "TRANSIENT_IO"
	// KindProtocolViolation is a wire-protocol contract breach.
	KindProtocolViolation Kind = "PROTOCOL_VIOLATION"
	// KindVersionMismatch is a rejected version-compatibility check.
	KindVersionMismatch Kind = "VERSION_MISMATCH"
	// KindInvalidManifest is a manifest parse/validation failure.
	KindInvalidManifest Kind = "INVALID_MANIFEST"
	// KindExternalTool is a failure from an invoked external program (git, apache2ctl, npm, systemctl).
	KindExternalTool Kind = "EXTERNAL_TOOL"
	// KindCredentialsUnreadable marks the credentials file as undecryptable/unparseable.
	KindCredentialsUnreadable Kind = "CREDENTIALS_UNREADABLE"
	// KindAggregatorUnreachable marks a failed dial/write to the aggregator socket.
	KindAggregatorUnreachable Kind = "AGGREGATOR_UNREACHABLE"
	// KindStartupFatal marks a failure that should abort daemon startup (exit code 1).
	KindStartupFatal Kind = "STARTUP_FATAL"
)

// PlatformError is a structured error carrying a Kind, a human message, and an
// optional wrapped cause.
type PlatformError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *PlatformError) Unwrap() error { return e.Err }

// New creates a PlatformError with no wrapped cause.
func New(kind Kind, message string) *PlatformError {
	return &PlatformError{Kind: kind, Message: message}
}

// Wrap creates a PlatformError wrapping an underlying error.
func Wrap(kind Kind, message string, err error) *PlatformError {
	return &PlatformError{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is a PlatformError of the given kind.
func Is(err error, kind Kind) bool {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from an error chain, or "" if err is not a PlatformError.
func KindOf(err error) Kind {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// StartupFatal reports whether err should abort daemon startup per spec §6
// (exit code 1: socket bind failure or credentials decrypt failure).
func StartupFatal(err error) bool {
	k := KindOf(err)
	return k == KindStartupFatal || k == KindCredentialsUnreadable
}

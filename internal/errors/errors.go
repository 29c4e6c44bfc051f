// Package errors implements the error taxonomy the context engine uses
// to distinguish fatal configuration problems, retryable remote
// failures, and warning-level conditions that must never propagate.
package errors

import (
	goerrors "errors"
	"fmt"
)

// Kind identifies which bucket of the taxonomy an error belongs to.
type Kind string

const (
	KindConfigError           Kind = "config_error"
	KindBackendUnavailable    Kind = "backend_unavailable"
	KindRemoteTransient       Kind = "remote_transient"
	KindRemoteFatal           Kind = "remote_fatal"
	KindValidation            Kind = "validation"
	KindPressureSkip          Kind = "pressure_skip"
	KindPartialIngest         Kind = "partial_ingest"
	KindAccessTrackingFailure Kind = "access_tracking_failure"
)

// Error is the concrete type every taxonomy constructor returns. It
// wraps an optional underlying error so errors.Is/errors.As compose
// through the standard library.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind, so errors.Is
// matches two taxonomy errors by kind regardless of message. A bare Kind
// is not an error value; GetKind reads the Kind out of an error chain.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// GetKind extracts the taxonomy Kind from err, if any *Error is present
// anywhere in its unwrap chain.
func GetKind(err error) (Kind, bool) {
	var e *Error
	if goerrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Config reports a missing or invalid backend specifier, or any other
// unrecoverable startup configuration problem. Fatal, non-recoverable.
func Config(format string, args ...any) error {
	return &Error{Kind: KindConfigError, Message: fmt.Sprintf(format, args...)}
}

// NoBackend reports that no backend is registered for capability.
// Fatal for the call; callers must not silently degrade.
func NoBackend(capability string) error {
	return &Error{Kind: KindBackendUnavailable, Message: fmt.Sprintf("no backend registered for capability %q", capability)}
}

// Transient wraps err as a retryable remote failure (5xx, network,
// rate-limit) from an embedding/LLM/reranker/store call.
func Transient(err error) error {
	return &Error{Kind: KindRemoteTransient, Message: "remote call failed, retryable", Err: err}
}

// Fatal wraps err as a non-retryable remote failure, surfaced after the
// retry budget for a RemoteTransient error is exhausted.
func Fatal(err error) error {
	return &Error{Kind: KindRemoteFatal, Message: "remote call failed after retries", Err: err}
}

// Validation reports a schema violation, dimension mismatch, or
// supersession cycle. Not retried; surfaces to the caller with context.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// PressureSkip reports that a file was skipped because the pause gate
// is engaged. Non-error, warning-level; callers log and continue.
func PressureSkip(path string) error {
	return &Error{Kind: KindPressureSkip, Message: fmt.Sprintf("skipped %q: consolidation pause gate engaged", path)}
}

// PartialIngest wraps a per-file failure collected into an ingest run's
// error list rather than aborting the run.
func PartialIngest(path string, err error) error {
	return &Error{Kind: KindPartialIngest, Message: fmt.Sprintf("file %q failed", path), Err: err}
}

// AccessTrackingFailure wraps an error from the asynchronous
// access-credit path. Always demoted to a warning; never propagated to
// the caller of search.
func AccessTrackingFailure(err error) error {
	return &Error{Kind: KindAccessTrackingFailure, Message: "access tracking failed", Err: err}
}

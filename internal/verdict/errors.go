package verdict

import (
	"errors"
	"fmt"
)

// CheckError represents a failure detected while evaluating a check.
//
// The Kind separates two very different situations:
//   - Expectation failures (NotFound, SchemaMismatch, ValueMismatch): the
//     external state does not match what the task required. Normal,
//     reportable outcomes.
//   - Infrastructure failures (FetchFailed, ConnectionFailed, QueryFailed,
//     Timeout): the verification itself could not run. A harness should
//     classify these as "verification broken", not "agent failed".
//
// CheckError includes structured fields for diagnostics.
type CheckError struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// Target identifies the entity being checked (page title, block id,
	// table name) when one is known.
	Target string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorKind categorizes check errors.
type ErrorKind string

const (
	// KindNotFound indicates an expected entity is absent from the store.
	// A normal, reportable failure - not exceptional.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindFetchFailed indicates an I/O failure talking to the hierarchical store.
	KindFetchFailed ErrorKind = "FETCH_FAILED"

	// KindConnectionFailed indicates the relational store could not be reached.
	KindConnectionFailed ErrorKind = "CONNECTION_FAILED"

	// KindQueryFailed indicates a malformed query - a bug in the check
	// definition rather than in the external state.
	KindQueryFailed ErrorKind = "QUERY_FAILED"

	// KindTimeout indicates a per-call deadline expired.
	KindTimeout ErrorKind = "TIMEOUT"

	// KindSchemaMismatch indicates a structural or type expectation was violated.
	KindSchemaMismatch ErrorKind = "SCHEMA_MISMATCH"

	// KindValueMismatch indicates a content or quantity expectation was violated.
	KindValueMismatch ErrorKind = "VALUE_MISMATCH"
)

// Error implements the error interface.
func (e *CheckError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target=%s)", e.Kind, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CheckError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from an error chain.
// Returns the empty kind when err is not a CheckError.
func KindOf(err error) ErrorKind {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsInfrastructure reports whether the error means the verification itself
// could not run, as opposed to the external state being wrong.
// Uses errors.As to handle wrapped errors.
func IsInfrastructure(err error) bool {
	switch KindOf(err) {
	case KindFetchFailed, KindConnectionFailed, KindQueryFailed, KindTimeout:
		return true
	}
	return false
}

// NewNotFound creates a CheckError for an absent entity.
func NewNotFound(target, message string) *CheckError {
	return &CheckError{Kind: KindNotFound, Message: message, Target: target}
}

// NewFetchFailed wraps an I/O failure from the hierarchical store.
func NewFetchFailed(target string, err error) *CheckError {
	return &CheckError{Kind: KindFetchFailed, Message: "fetch failed", Target: target, Err: err}
}

// NewConnectionFailed wraps a relational-store connection failure.
func NewConnectionFailed(err error) *CheckError {
	return &CheckError{Kind: KindConnectionFailed, Message: "connection failed", Err: err}
}

// NewQueryFailed wraps a query execution failure.
func NewQueryFailed(query string, err error) *CheckError {
	return &CheckError{Kind: KindQueryFailed, Message: "query failed", Target: query, Err: err}
}

// NewTimeout creates a CheckError for an expired deadline.
func NewTimeout(target string, err error) *CheckError {
	return &CheckError{Kind: KindTimeout, Message: "deadline exceeded", Target: target, Err: err}
}

// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Channel and entity resolution errors.
var (
	// ErrChannelNotFound indicates a channel could not be found.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNotAChannel indicates the entity is not a channel type.
	ErrNotAChannel = errors.New("entity is not a channel")

	// ErrMessageNotFound indicates a message could not be found.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Client and connection errors.
var (
	// ErrClientNotInitialized indicates a client has not been initialized.
	ErrClientNotInitialized = errors.New("client not initialized")

	// ErrClientDisabled indicates a client or feature is disabled.
	ErrClientDisabled = errors.New("client disabled")
)

// Response and parsing errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrNoResults indicates no results were found.
	ErrNoResults = errors.New("no results")

	// ErrUnexpectedType indicates an unexpected type was encountered.
	ErrUnexpectedType = errors.New("unexpected type")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidID indicates an invalid identifier.
	ErrInvalidID = errors.New("invalid id")
)

// Rate limiting and throttling errors.
var (
	// ErrRateLimited indicates rate limiting was triggered.
	ErrRateLimited = errors.New("rate limited")

	// ErrTooManyRequests indicates too many requests were made.
	ErrTooManyRequests = errors.New("too many requests")
)

// Cache errors.
var (
	// ErrCacheNotFound indicates a cache entry was not found.
	ErrCacheNotFound = errors.New("cache entry not found")

	// ErrCacheExpired indicates a cache entry has expired.
	ErrCacheExpired = errors.New("cache entry expired")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Kind classifies an error the way an external transport layer needs to
// map it to a response (HTTP status, retry behavior). Each typed error
// below implements ErrorKind() to expose its kind without callers needing
// to errors.As against every concrete type individually.
type Kind string

// Error kinds.
const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindConflict            Kind = "conflict"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindCircuitOpen         Kind = "circuit_open"
	KindInternal            Kind = "internal"
)

// ValidationError indicates the caller supplied input that fails a
// well-formedness or domain rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Field + ": " + e.Reason
}

// ErrorKind implements Kind for ValidationError.
func (e *ValidationError) ErrorKind() string { return string(KindValidation) }

// NotFoundError indicates the referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found: " + e.ID
}

// ErrorKind implements Kind for NotFoundError.
func (e *NotFoundError) ErrorKind() string { return string(KindNotFound) }

// ForbiddenError indicates the principal is not authorized for the
// requested action on the requested community.
type ForbiddenError struct {
	Principal string
	Action    string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Principal + " may not " + e.Action
}

// ErrorKind implements Kind for ForbiddenError.
func (e *ForbiddenError) ErrorKind() string { return string(KindForbidden) }

// ConflictError indicates a mutation would violate a uniqueness or
// state-transition invariant (e.g. a second active job of the same
// workflow type, a backwards BatchJob status transition).
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// ErrorKind implements Kind for ConflictError.
func (e *ConflictError) ErrorKind() string { return string(KindConflict) }

// ProviderUnavailableError indicates an external provider (embedding,
// LLM, fact-check lookup) failed or its circuit breaker rejected the
// call. Retriable per the caller's retry policy.
type ProviderUnavailableError struct {
	Provider string
	Cause    error
}

func (e *ProviderUnavailableError) Error() string {
	if e.Cause != nil {
		return "provider unavailable: " + e.Provider + ": " + e.Cause.Error()
	}

	return "provider unavailable: " + e.Provider
}

// ErrorKind implements Kind for ProviderUnavailableError.
func (e *ProviderUnavailableError) ErrorKind() string { return string(KindProviderUnavailable) }

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *ProviderUnavailableError) Unwrap() error { return e.Cause }

// CircuitOpenError indicates a circuit breaker rejected the call before
// attempting it, distinct from a ProviderUnavailableError raised by a
// call that was actually attempted.
type CircuitOpenError struct {
	Name string
}

func (e *CircuitOpenError) Error() string {
	return "circuit open: " + e.Name
}

// ErrorKind implements Kind for CircuitOpenError.
func (e *CircuitOpenError) ErrorKind() string { return string(KindCircuitOpen) }

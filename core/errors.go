package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a FrameworkError so callers can branch on failure
// category without string-matching a message. It mirrors the propagation
// table every package in this repo is expected to honor: provider errors
// are classified into one of these kinds before a caller decides whether to
// retry, fall back, or give up.
type ErrorKind string

const (
	ErrorKindRateLimit           ErrorKind = "rate_limit"
	ErrorKindTimeout             ErrorKind = "timeout"
	ErrorKindConnection          ErrorKind = "connection"
	ErrorKindAuth                ErrorKind = "auth"
	ErrorKindInvalidRequest      ErrorKind = "invalid_request"
	ErrorKindServerError         ErrorKind = "server_error"
	ErrorKindOther               ErrorKind = "other"
	ErrorKindBudgetExceeded      ErrorKind = "budget_exceeded"
	ErrorKindSecurityRejected    ErrorKind = "security_rejected"
	ErrorKindCircuitOpen         ErrorKind = "circuit_open"
	ErrorKindValidationFailed    ErrorKind = "validation_failed"
	ErrorKindParseError          ErrorKind = "parse_error"
	ErrorKindDeadlock            ErrorKind = "deadlock"
	ErrorKindInvalidConfiguration ErrorKind = "invalid_configuration"
	ErrorKindNotFound            ErrorKind = "not_found"
	ErrorKindState               ErrorKind = "state"
)

// Sentinel errors for comparison with errors.Is(). Provider adapters and
// resilience components wrap one of these so callers can classify a
// failure without inspecting its message.
var (
	// Provider invocation errors (spec error taxonomy)
	ErrRateLimited    = errors.New("provider rate limited the request")
	ErrConnectionFailed = errors.New("connection failed")
	ErrAuthFailed     = errors.New("provider authentication failed")
	ErrInvalidRequest = errors.New("invalid request")
	ErrServerError    = errors.New("provider server error")
	ErrStreamPartiallyCompleted = errors.New("stream terminated before completion")
	ErrParseResponse  = errors.New("failed to parse provider response")

	// Resilience errors
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
	ErrTimeout            = errors.New("operation timeout")
	ErrContextCanceled    = errors.New("context canceled")

	// Cost ledger errors
	ErrBudgetExceeded = errors.New("budget hard cap exceeded")

	// Agent / validation errors
	ErrSecurityRejected  = errors.New("task rejected by security pre-check")
	ErrValidationFailed  = errors.New("validation failed")
	ErrMaxIterationsReached = errors.New("refinement loop reached max iterations without passing validation")

	// Generic not-found sentinels, reused across registries (validators,
	// workflow engines, cluster nodes)
	ErrAgentNotFound      = errors.New("not found")
	ErrCapabilityNotFound = errors.New("capability not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrDiscoveryUnavailable = errors.New("discovery service unavailable")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// State errors
	ErrAlreadyStarted    = errors.New("already started")
	ErrNotInitialized    = errors.New("not initialized")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrAgentNotReady     = errors.New("not ready")

	// Parallel cluster errors
	ErrDeadlockDetected = errors.New("dependency cycle prevents task splitting")
)

// FrameworkError provides structured error information with context. It
// implements the error interface and supports wrapping via errors.Is/As.
type FrameworkError struct {
	Op      string    // Operation that failed (e.g., "agent.Invoke")
	Kind    ErrorKind // Error classification
	ID      string    // Optional ID of the entity involved (task ID, model ID)
	Message string    // Human-readable message
	Err     error     // Underlying error for wrapping
}

func (e *FrameworkError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *FrameworkError) Unwrap() error {
	return e.Err
}

// NewFrameworkError creates a new FrameworkError.
func NewFrameworkError(op string, kind ErrorKind, id, message string, err error) *FrameworkError {
	return &FrameworkError{
		Op:      op,
		Kind:    kind,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

// IsRetryable reports whether an error represents a transient condition a
// caller should retry (per the propagation table: rate_limit, timeout,
// connection, server_error, and an open circuit breaker all qualify).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDiscoveryUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrCircuitBreakerOpen) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServerError)
}

// IsNotFound reports whether an error represents a "not found" condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAgentNotFound) ||
		errors.Is(err, ErrCapabilityNotFound) ||
		errors.Is(err, ErrServiceNotFound)
}

// IsConfigurationError reports whether an error is configuration-related.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// IsStateError reports whether an error is related to invalid state
// transitions.
func IsStateError(err error) bool {
	return errors.Is(err, ErrAlreadyStarted) ||
		errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrAgentNotReady)
}

// ClassifyHTTPStatus maps an HTTP status code returned by a provider into
// the error taxonomy's ErrorKind, following the propagation table: 429 is
// rate_limit, 401/403 is auth, 400/404/422 is invalid_request, 5xx is
// server_error.
func ClassifyHTTPStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == 429:
		return ErrorKindRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorKindAuth
	case statusCode == 400 || statusCode == 404 || statusCode == 422:
		return ErrorKindInvalidRequest
	case statusCode >= 500:
		return ErrorKindServerError
	default:
		return ErrorKindOther
	}
}

// SentinelForKind returns the sentinel error errors.Is() callers should
// check for a given ErrorKind, so provider adapters can wrap a single
// sentinel consistently regardless of vendor-specific error types.
func SentinelForKind(kind ErrorKind) error {
	switch kind {
	case ErrorKindRateLimit:
		return ErrRateLimited
	case ErrorKindTimeout:
		return ErrTimeout
	case ErrorKindConnection:
		return ErrConnectionFailed
	case ErrorKindAuth:
		return ErrAuthFailed
	case ErrorKindInvalidRequest:
		return ErrInvalidRequest
	case ErrorKindServerError:
		return ErrServerError
	case ErrorKindBudgetExceeded:
		return ErrBudgetExceeded
	case ErrorKindSecurityRejected:
		return ErrSecurityRejected
	case ErrorKindCircuitOpen:
		return ErrCircuitBreakerOpen
	case ErrorKindValidationFailed:
		return ErrValidationFailed
	case ErrorKindDeadlock:
		return ErrDeadlockDetected
	case ErrorKindParseError:
		return ErrParseResponse
	default:
		return nil
	}
}

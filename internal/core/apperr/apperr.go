// Package apperr defines the closed set of failure kinds used across
// the order core. Every failure crossing a component boundary is an
// *Error; the Kind decides whether the retry scheduler may attempt the
// operation again.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure. The set is closed: new failure modes get
// a new Kind, never an untyped string.
type Kind int

const (
	KindValidation Kind = iota
	KindRateLimit
	KindTimeout
	KindNetwork
	KindServer
	KindRetriable
	KindPermanent
	KindInsufficientStock
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindRetriable:
		return "retriable"
	case KindPermanent:
		return "permanent"
	case KindInsufficientStock:
		return "insufficient_stock"
	}
	return "unknown"
}

// Retryable reports whether the retry scheduler may re-attempt an
// operation that failed with this kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindValidation, KindPermanent, KindInsufficientStock:
		return false
	}
	return true
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string

	// Kind-specific data. Zero unless the kind sets it.
	Field      string        // KindValidation
	RetryAfter time.Duration // KindRateLimit
	Elapsed    time.Duration // KindTimeout
	StatusCode int           // KindServer

	cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.Field)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Validation reports rejected input. Never retried.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// RateLimit reports throttling; retryAfter is the minimum back-off the
// caller must honor before the next attempt.
func RateLimit(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimit,
		Message:    fmt.Sprintf("rate limited, retry after %s", retryAfter),
		RetryAfter: retryAfter,
	}
}

// Timeout reports an attempt that did not finish within its deadline.
func Timeout(elapsed time.Duration) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("attempt timed out after %s", elapsed),
		Elapsed: elapsed,
	}
}

// Network reports a transport-level failure.
func Network(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: "transport failure", cause: cause}
}

// Server reports a remote-service failure (5xx-equivalent).
func Server(statusCode int) *Error {
	return &Error{
		Kind:       KindServer,
		Message:    fmt.Sprintf("server returned status %d", statusCode),
		StatusCode: statusCode,
	}
}

// Retriable reports an explicitly retryable business condition.
func Retriable(reason string) *Error {
	return &Error{Kind: KindRetriable, Message: reason}
}

// Permanent reports a non-retryable business condition, surfaced to
// the caller as-is.
func Permanent(reason string) *Error {
	return &Error{Kind: KindPermanent, Message: reason}
}

// InsufficientStock reports a reservation that exceeded availability.
// Terminal for the attempt; the shopper must be re-prompted.
func InsufficientStock(itemID string, requested, available int) *Error {
	return &Error{
		Kind: KindInsufficientStock,
		Message: fmt.Sprintf(
			"item %s: requested %d, only %d available", itemID, requested, available,
		),
	}
}

// KindOf extracts the Kind from an error chain. Unclassified errors
// default to KindRetriable so transient plumbing failures stay
// retryable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRetriable
}

// Retryable reports whether the retry scheduler may re-attempt after
// this error.
func Retryable(err error) bool {
	return KindOf(err).Retryable()
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

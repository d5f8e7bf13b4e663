package logstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies adapter failures for the query client.
type ErrorKind string

const (
	// KindTimeout: the template deadline elapsed. Retryable.
	KindTimeout ErrorKind = "timeout"
	// KindConnectivityLost: the store is unreachable or dropped the
	// connection mid-query. Retryable.
	KindConnectivityLost ErrorKind = "connectivity_lost"
	// KindInvalidQuery: the store rejected the statement or its
	// parameters. Not retryable; retrying the same input cannot succeed.
	KindInvalidQuery ErrorKind = "invalid_query"
)

// Error is a classified store failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindConnectivityLost
}

// NewError creates a classified store error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// ClassifyError maps a driver error to a classified *Error. Already
// classified errors pass through unchanged.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, "query deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(KindTimeout, "query canceled", err)
	}

	lower := strings.ToLower(err.Error())
	connectivityPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"unexpected eof",
		"conn closed",
		"closed pool",
		"too many connections",
	}
	for _, pattern := range connectivityPatterns {
		if strings.Contains(lower, pattern) {
			return NewError(KindConnectivityLost, "log store unreachable", err)
		}
	}
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") {
		return NewError(KindTimeout, "query timed out", err)
	}

	return NewError(KindInvalidQuery, "query rejected by store", err)
}

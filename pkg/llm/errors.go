package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies provider failures.
type ErrorType string

const (
	// ErrorTypeContentFilter: the provider's safety layer rejected the
	// request or response. Never retryable, never treated as transport.
	ErrorTypeContentFilter ErrorType = "content_filter"
	// ErrorTypeTransport: network, timeout or server-side failure
	// reaching the provider. Fatal to the current turn.
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeAuth: bad or missing credentials.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeModel: the configured model or deployment does not exist.
	ErrorTypeModel ErrorType = "model"
	// ErrorTypeRateLimit: provider throttling.
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a structured provider error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
	Model      string
	Endpoint   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured provider error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ClassifyError categorizes a provider error into a structured Error.
// Content-filter rejections must classify distinctly from transport
// failures: the orchestrator apologizes for the former and aborts the
// turn on the latter.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	// Safety-layer rejections. Azure reports ResponsibleAIPolicyViolation
	// on filtered prompts and finish_reason content_filter on filtered
	// completions; Anthropic declines with a refusal stop reason.
	if strings.Contains(lower, "content_filter") ||
		strings.Contains(lower, "content filter") ||
		strings.Contains(lower, "responsibleaipolicyviolation") ||
		strings.Contains(lower, "content management policy") ||
		strings.Contains(lower, "refusal") {
		e := NewError(ErrorTypeContentFilter, "request rejected by provider content filter", false, err)
		e.StatusCode = statusCode
		return e
	}

	if strings.Contains(errStr, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") || strings.Contains(lower, "authentication") {
		e := NewError(ErrorTypeAuth, "authentication failed", false, err)
		e.StatusCode = statusCode
		return e
	}

	if strings.Contains(lower, "model") && (strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist")) {
		e := NewError(ErrorTypeModel, "model not found", false, err)
		e.StatusCode = statusCode
		return e
	}
	if strings.Contains(lower, "deployment") && strings.Contains(lower, "not found") {
		e := NewError(ErrorTypeModel, "deployment not found", false, err)
		e.StatusCode = statusCode
		return e
	}

	if strings.Contains(errStr, "429") || strings.Contains(lower, "rate limit") {
		e := NewError(ErrorTypeRateLimit, "rate limited", true, err)
		e.StatusCode = statusCode
		return e
	}

	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "context canceled") || strings.Contains(lower, "connection reset") ||
		strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") {
		e := NewError(ErrorTypeTransport, "provider unreachable", true, err)
		e.StatusCode = statusCode
		return e
	}

	e := NewError(ErrorTypeUnknown, "provider error", false, err)
	e.StatusCode = statusCode
	return e
}

// IsContentFilter reports whether err is a safety-layer rejection.
func IsContentFilter(err error) bool {
	var provErr *Error
	return errors.As(err, &provErr) && provErr.Type == ErrorTypeContentFilter
}

// IsTransport reports whether err is a transport-level provider failure.
func IsTransport(err error) bool {
	var provErr *Error
	if !errors.As(err, &provErr) {
		return false
	}
	return provErr.Type == ErrorTypeTransport || provErr.Type == ErrorTypeRateLimit
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Type
	}
	return ErrorTypeUnknown
}

package llm

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Error is a classified LLM failure. The classification drives retry
// decisions and the error text shown to operators.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int    // HTTP status when known, 0 otherwise
	Model      string // model in use when the failure happened
	Endpoint   string // endpoint URL, reduced to its host in Error()
}

// Error renders the classification, any known context, the message, and the
// cause. The endpoint is reduced to its host so path segments and query
// strings never reach logs.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))

	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " HTTP %d", e.StatusCode)
	}
	if e.Model != "" {
		fmt.Fprintf(&b, " model=%s", e.Model)
	}
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " endpoint=%s", redactEndpoint(e.Endpoint))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// redactEndpoint reduces an endpoint URL to its host.
func redactEndpoint(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return "invalid-endpoint"
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface, letting the
// retry package honor the classification without importing this package.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError builds a classified error around its cause.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewErrorWithContext is NewError plus the model, endpoint, and status code
// of the request that failed.
func NewErrorWithContext(errType ErrorType, message string, retryable bool, cause error, model, endpoint string, statusCode int) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Retryable:  retryable,
		Cause:      cause,
		Model:      model,
		Endpoint:   endpoint,
		StatusCode: statusCode,
	}
}

// statusCodePattern matches 3-digit codes only when introduced by "HTTP",
// "status", or "code" so record counts and port numbers are not read as
// status codes.
var statusCodePattern = regexp.MustCompile(`(?i)(?:http|status|code)[:\s]+(\d{3})\b`)

// extractStatusCode pulls an HTTP status code out of an error string.
// Returns 0 when no plausible status code is present.
func extractStatusCode(errStr string) int {
	matches := statusCodePattern.FindStringSubmatch(errStr)
	if len(matches) < 2 {
		return 0
	}

	code, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	if code < 400 || code > 599 {
		return 0
	}
	return code
}

// classifyRules are evaluated in order and the first match decides. Order
// matters: cancellation outranks timeout because Go renders both with
// similar text, and model-not-found outranks plain 404 because model errors
// usually carry one.
var classifyRules = []struct {
	errType   ErrorType
	message   string
	retryable bool
	match     func(lower string, status int) bool
}{
	// Cancellation is caller-initiated, retrying it would ignore intent.
	{ErrorTypeUnknown, "request cancelled", false, func(lower string, _ int) bool {
		return strings.Contains(lower, "context canceled")
	}},
	{ErrorTypeAuth, "authentication failed", false, func(lower string, status int) bool {
		return status == 401 || strings.Contains(lower, "unauthorized") ||
			strings.Contains(lower, "invalid api key")
	}},
	{ErrorTypeRateLimited, "rate limited", true, func(lower string, status int) bool {
		return status == 429 || strings.Contains(lower, "rate limit") ||
			strings.Contains(lower, "too many requests")
	}},
	// Not retryable without a config change.
	{ErrorTypeModel, "model not found", false, func(lower string, _ int) bool {
		return strings.Contains(lower, "model") &&
			(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist"))
	}},
	{ErrorTypeEndpoint, "endpoint not found", false, func(_ string, status int) bool {
		return status == 404
	}},
	{ErrorTypeEndpoint, "connection failed", true, func(lower string, _ int) bool {
		return strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host")
	}},
	{ErrorTypeEndpoint, "request timeout", true, func(lower string, _ int) bool {
		return strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded")
	}},
	{ErrorTypeEndpoint, "server error", true, func(_ string, status int) bool {
		return status >= 500 && status <= 599
	}},
}

// ClassifyError turns an arbitrary error from an LLM call into a classified
// *Error. An *Error already in the chain is returned as-is so upstream
// classification survives wrapping.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}
	if llmErr, ok := asError(err); ok {
		return llmErr
	}

	lower := strings.ToLower(err.Error())
	status := extractStatusCode(err.Error())

	for _, rule := range classifyRules {
		if rule.match(lower, status) {
			classified := NewError(rule.errType, rule.message, rule.retryable, err)
			classified.StatusCode = status
			return classified
		}
	}

	classified := NewError(ErrorTypeUnknown, "llm error", false, err)
	classified.StatusCode = status
	return classified
}

// asError extracts the first *Error in the chain.
func asError(err error) (*Error, bool) {
	var llmErr *Error
	ok := errors.As(err, &llmErr)
	return llmErr, ok
}

// IsRetryable reports whether err carries a retryable classification.
// Unclassified errors are not retried.
func IsRetryable(err error) bool {
	if llmErr, ok := asError(err); ok {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType returns the classification of err, or ErrorTypeUnknown for
// unclassified errors.
func GetErrorType(err error) ErrorType {
	if llmErr, ok := asError(err); ok {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

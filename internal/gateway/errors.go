package gateway

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// HTTPError is a non-2xx response from the GraphQL endpoint. The raw body is
// kept for operator diagnosis.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GraphQL request failed: %d - %s", e.Status, e.Body)
}

// InvalidResponseError is a response body that could not be parsed as JSON.
// The HTTP status is retained so retry classification can still recognize a
// transient proxy failure that returned an HTML error page.
type InvalidResponseError struct {
	Status int
	Body   string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid JSON response: %s", e.Body)
}

// GraphQLError is a structurally valid response carrying application-level
// errors, e.g. a malformed query or a permission denial. Retrying such a
// request cannot succeed, so it is never retried.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "GraphQL errors:\n" + strings.Join(e.Messages, "\n")
}

// APIError is surfaced once retries are exhausted or the failure turned out
// to be permanent. It embeds the attempt count, target URL and serialized
// request variables, and preserves the original error as its cause.
type APIError struct {
	Attempts  int
	URL       string
	Variables string
	Err       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitLab API error (attempt %d/%d):\nURL: %s\nError: %v\nVariables: %s",
		e.Attempts, retryLimit, e.URL, e.Err, e.Variables)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

var retryableMessages = []string{"rate limit", "timeout", "socket hang up"}

// ShouldRetry reports whether err is a transient failure worth another
// attempt. It is a pure function of the error: network transport failures,
// a retryable HTTP status, or a message hinting at rate limiting or timeouts
// qualify. GraphQL application errors and remaining 4xx statuses are
// permanent request defects.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return retryableStatuses[httpErr.Status]
	}

	var invalidErr *InvalidResponseError
	if errors.As(err, &invalidErr) {
		return retryableStatuses[invalidErr.Status]
	}

	if isNetworkError(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range retryableMessages {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

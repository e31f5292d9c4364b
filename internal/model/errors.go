package model

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConfigurationError reports missing or malformed deployment configuration:
// absent credentials, a private key that cannot be coerced into PKCS8, or a
// missing workbook id. It is fatal for the request and is never retried;
// recovery requires an operator fix.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
	}
	return "configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError reports a non-2xx response from the spreadsheet API or the
// token endpoint, carrying the upstream status and body text so callers can
// branch on kind instead of parsing message strings.
type TransportError struct {
	Op     string // the upstream operation, e.g. "values.get"
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %s: status %d: %s", e.Op, e.Status, e.Body)
}

// RateLimited reports whether the upstream response indicates a quota or
// rate-limit condition, either by status code or by error body text.
func (e *TransportError) RateLimited() bool {
	if e.Status == http.StatusTooManyRequests {
		return true
	}
	lower := strings.ToLower(e.Body)
	return strings.Contains(lower, "resource_exhausted") || strings.Contains(lower, "ratelimitexceeded")
}

// BadRequestError reports a protocol violation by the caller: an unknown
// action or a missing required field for the chosen action.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

// AsConfiguration reports whether err is (or wraps) a ConfigurationError.
func AsConfiguration(err error) (*ConfigurationError, bool) {
	var ce *ConfigurationError
	ok := errors.As(err, &ce)
	return ce, ok
}

// AsTransport reports whether err is (or wraps) a TransportError.
func AsTransport(err error) (*TransportError, bool) {
	var te *TransportError
	ok := errors.As(err, &te)
	return te, ok
}

// AsBadRequest reports whether err is (or wraps) a BadRequestError.
func AsBadRequest(err error) (*BadRequestError, bool) {
	var be *BadRequestError
	ok := errors.As(err, &be)
	return be, ok
}

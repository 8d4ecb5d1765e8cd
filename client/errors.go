package client

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// ConfigError reports invalid executor or batch configuration. It is
// returned synchronously, before any work starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ErrMissingBaseURL is returned by New when no base URL is supplied.
// Callers must provide an absolute base; absence is a configuration error,
// not a runtime one.
var ErrMissingBaseURL = &ConfigError{Field: "base_url", Reason: "base URL is required"}

// RequestError is the structured error surfaced for every failed request.
// Status is zero for transport-level failures (DNS, connection refused,
// timeout) and non-zero for HTTP status failures, in which case Data holds
// the parsed response body (JSON when parseable, raw text otherwise).
type RequestError struct {
	Message  string
	Status   int
	Data     interface{}
	Response *resty.Response

	cause error
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("request failed: HTTP %d: %s", e.Status, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("request failed: %s: %v", e.Message, e.cause)
	}
	return fmt.Sprintf("request failed: %s", e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.cause
}

// IsNetwork reports whether the failure happened below the HTTP layer,
// meaning no response status was ever received.
func (e *RequestError) IsNetwork() bool {
	return e.Status == 0
}

// AsRequestError extracts a *RequestError from an error chain.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

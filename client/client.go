// Package client implements the HTTP request executor: one logical Enfyra
// API call in, a parsed response or a structured error out. It is stateless
// beyond the underlying transport and carries no batching logic.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dothinh115/enfyra-sdk-go/internal/logger"
	"github.com/dothinh115/enfyra-sdk-go/metrics"
)

// TokenProvider supplies the bearer credential for outgoing requests.
// The credential is an opaque string; the executor never inspects it.
type TokenProvider func() string

// File is one multipart upload payload.
type File struct {
	Field    string // form field name; defaults to "file"
	Name     string // filename sent in the multipart header
	Content  []byte
	MimeType string // optional; the transport detects it when empty
}

// Config holds executor configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string // applied to every request
	Token   TokenProvider
	Logger  *logger.Logger
}

// Executor issues single HTTP requests against the Enfyra API.
type Executor struct {
	rc     *resty.Client
	token  TokenProvider
	logger *logger.Logger
}

// New creates an Executor. An empty BaseURL is a configuration error.
func New(cfg Config) (*Executor, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	rc := resty.New()
	rc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	for k, v := range cfg.Headers {
		rc.SetHeader(k, v)
	}

	e := &Executor{
		rc:    rc,
		token: cfg.Token,
	}
	if cfg.Logger != nil {
		e.logger = cfg.Logger.WithField(logger.FieldComponent, "client")
	}
	return e, nil
}

// log resolves the logger for one request: the configured logger wins,
// otherwise the context logger so upstream tracing fields (request_id,
// batch_id) carry through to transport-level log lines.
func (e *Executor) log(ctx context.Context) *logger.Logger {
	if e.logger != nil {
		return e.logger
	}
	return logger.FromContext(ctx)
}

// Options describes a single request.
type Options struct {
	Method  string // get/post/put/patch/delete, case-insensitive; default GET
	Body    interface{}
	Query   map[string]interface{}
	Headers map[string]string
	Files   []File // non-empty switches the request to multipart
}

// Execute issues one request and returns the parsed response body.
// Non-2xx responses and transport failures both come back as *RequestError;
// see errors.go for how the two are distinguished.
func (e *Executor) Execute(ctx context.Context, path string, opts Options) (interface{}, error) {
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	req := e.rc.R().SetContext(ctx)

	for k, v := range opts.Headers {
		req.SetHeader(k, v)
	}
	if e.token != nil {
		if tok := e.token(); tok != "" {
			req.SetHeader("Authorization", "Bearer "+tok)
		}
	}

	for k, v := range opts.Query {
		req.SetQueryParam(k, queryValue(v))
	}

	// GET-like methods never send a body even if one is supplied.
	if allowsBody(method) {
		if len(opts.Files) > 0 {
			// Multipart upload. No JSON content type here so the transport
			// can set its own multipart boundary.
			for _, f := range opts.Files {
				field := f.Field
				if field == "" {
					field = "file"
				}
				req.SetFileReader(field, f.Name, bytes.NewReader(f.Content))
			}
		} else if opts.Body != nil {
			req.SetHeader("Content-Type", "application/json")
			req.SetBody(opts.Body)
		}
	}

	log := e.log(ctx).WithFields(logger.Fields{
		logger.FieldMethod: method,
		logger.FieldPath:   path,
	})

	start := time.Now()
	resp, err := req.Execute(method, path)
	elapsed := time.Since(start)

	if err != nil {
		metrics.ObserveRequest(method, 0, elapsed)
		log.WithField(logger.FieldDurationMs, elapsed.Milliseconds()).
			WithError(err).Warn("Request transport failure")
		return nil, &RequestError{
			Message: "network error",
			cause:   err,
		}
	}

	metrics.ObserveRequest(method, resp.StatusCode(), elapsed)
	log = log.WithFields(logger.Fields{
		logger.FieldStatus:     resp.StatusCode(),
		logger.FieldDurationMs: elapsed.Milliseconds(),
	})

	parsed := parseBody(resp.Body())

	if resp.IsSuccess() {
		log.Debug("Request completed")
		return parsed, nil
	}

	log.Warn("Request returned error status")
	return nil, &RequestError{
		Message:  statusMessage(resp.StatusCode(), parsed),
		Status:   resp.StatusCode(),
		Data:     parsed,
		Response: resp,
	}
}

// allowsBody reports whether the method carries a request body.
func allowsBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// queryValue stringifies primitives directly; anything non-primitive is
// serialized as a JSON string value in the query string.
func queryValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// parseBody decodes a JSON response body, falling back to the raw text when
// the body is not valid JSON. Empty bodies decode to nil.
func parseBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return string(body)
	}
	return out
}

// statusMessage pulls a human-readable message out of a parsed error body,
// falling back to the standard status text.
func statusMessage(status int, parsed interface{}) string {
	if m, ok := parsed.(map[string]interface{}); ok {
		if msg, ok := m["message"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := m["error"].(string); ok && msg != "" {
			return msg
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

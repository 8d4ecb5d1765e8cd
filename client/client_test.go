package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dothinh115/enfyra-sdk-go/internal/logger"
)

func newTestExecutor(t *testing.T, handler http.HandlerFunc) *Executor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	exec, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return exec
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	if !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("got %v, want ErrMissingBaseURL", err)
	}

	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("missing base URL must be a *ConfigError, got %T", err)
	}
}

func TestExecuteQuerySerialization(t *testing.T) {
	var gotQuery map[string]string
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"page":   r.URL.Query().Get("page"),
			"active": r.URL.Query().Get("active"),
			"filter": r.URL.Query().Get("filter"),
		}
		w.Write([]byte(`{}`))
	})

	_, err := exec.Execute(context.Background(), "/items", Options{
		Query: map[string]interface{}{
			"page":   2,
			"active": true,
			"filter": map[string]interface{}{"name": "a"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery["page"] != "2" {
		t.Errorf("primitive int: got %q, want \"2\"", gotQuery["page"])
	}
	if gotQuery["active"] != "true" {
		t.Errorf("primitive bool: got %q, want \"true\"", gotQuery["active"])
	}
	if gotQuery["filter"] != `{"name":"a"}` {
		t.Errorf("non-primitive must be JSON-encoded: got %q", gotQuery["filter"])
	}
}

func TestExecuteGetNeverSendsBody(t *testing.T) {
	var gotBody []byte
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{}`))
	})

	_, err := exec.Execute(context.Background(), "/items", Options{
		Method: "get",
		Body:   map[string]string{"should": "not be sent"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotBody) != 0 {
		t.Errorf("GET request carried a body: %q", gotBody)
	}
}

func TestExecuteJSONBody(t *testing.T) {
	var gotBody string
	var gotContentType string
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"data":{"id":"1"}}`))
	})

	data, err := exec.Execute(context.Background(), "/items", Options{
		Method: "post",
		Body:   map[string]string{"name": "a"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody != `{"name":"a"}` {
		t.Errorf("got body %q", gotBody)
	}
	if !strings.Contains(gotContentType, "application/json") {
		t.Errorf("got content type %q, want application/json", gotContentType)
	}

	m, ok := data.(map[string]interface{})
	if !ok {
		t.Fatalf("response not parsed as JSON object: %T", data)
	}
	if _, ok := m["data"]; !ok {
		t.Errorf("parsed response missing data key: %v", m)
	}
}

func TestExecuteMultipartSuppressesJSONContentType(t *testing.T) {
	var gotContentType string
	var gotFile string
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			if f, _, err := r.FormFile("file"); err == nil {
				b, _ := io.ReadAll(f)
				gotFile = string(b)
				f.Close()
			}
		}
		w.Write([]byte(`{}`))
	})

	_, err := exec.Execute(context.Background(), "/files", Options{
		Method: "post",
		Files:  []File{{Name: "a.txt", Content: []byte("hello")}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("got content type %q, want multipart/form-data boundary", gotContentType)
	}
	if gotFile != "hello" {
		t.Errorf("got file content %q, want \"hello\"", gotFile)
	}
}

func TestExecuteHTTPStatusError(t *testing.T) {
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"record not found"}`))
	})

	data, err := exec.Execute(context.Background(), "/items/missing", Options{})
	if data != nil {
		t.Errorf("got data %v, want nil on failure", data)
	}

	re, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("got %T, want *RequestError", err)
	}
	if re.Status != http.StatusNotFound {
		t.Errorf("got status %d, want 404", re.Status)
	}
	if re.IsNetwork() {
		t.Error("status failure must not be classified as network error")
	}
	if re.Message != "record not found" {
		t.Errorf("got message %q, want body message", re.Message)
	}
	body, ok := re.Data.(map[string]interface{})
	if !ok || body["message"] != "record not found" {
		t.Errorf("got data %v, want parsed body", re.Data)
	}
}

func TestExecuteNonJSONErrorBody(t *testing.T) {
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream buckled"))
	})

	_, err := exec.Execute(context.Background(), "/items", Options{})
	re, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("got %T, want *RequestError", err)
	}
	if re.Data != "upstream buckled" {
		t.Errorf("got data %v, want raw text body", re.Data)
	}
}

func TestExecuteNetworkError(t *testing.T) {
	// Reserved port with nothing listening.
	exec, err := New(Config{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = exec.Execute(context.Background(), "/items", Options{})
	re, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("got %T, want *RequestError", err)
	}
	if !re.IsNetwork() {
		t.Errorf("got status %d, want network failure without status", re.Status)
	}
	if re.Unwrap() == nil {
		t.Error("network error must carry its transport cause")
	}
}

func TestExecuteBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	exec, err := New(Config{
		BaseURL: srv.URL,
		Token:   func() string { return "opaque-credential" },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := exec.Execute(context.Background(), "/items", Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer opaque-credential" {
		t.Errorf("got auth header %q", gotAuth)
	}
}

func TestExecuteUsesContextLogger(t *testing.T) {
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Output: &buf}).
		WithField(logger.FieldRequestID, "req-abc")
	ctx := log.WithContext(context.Background())

	if _, err := exec.Execute(ctx, "/items", Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-abc"`) {
		t.Errorf("transport log missing context field: %s", out)
	}
	if !strings.Contains(out, `"path":"/items"`) {
		t.Errorf("transport log missing path field: %s", out)
	}
}

func TestExecutePrefersConfiguredLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	var own, ctxBuf bytes.Buffer
	exec, err := New(Config{
		BaseURL: srv.URL,
		Logger:  logger.New(&logger.Config{Level: "debug", Format: "json", Output: &own}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctxLog := logger.New(&logger.Config{Level: "debug", Format: "json", Output: &ctxBuf})
	if _, err := exec.Execute(ctxLog.WithContext(context.Background()), "/items", Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if own.Len() == 0 {
		t.Error("configured logger was not used")
	}
	if ctxBuf.Len() != 0 {
		t.Error("context logger must not override a configured logger")
	}
}

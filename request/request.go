// Package request is the public entry point of the SDK: it wraps the HTTP
// executor and the batch engine behind an observable request state
// (data/error/pending) that callers poll instead of handling exceptions.
package request

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dothinh115/enfyra-sdk-go/batch"
	"github.com/dothinh115/enfyra-sdk-go/client"
	"github.com/dothinh115/enfyra-sdk-go/internal/logger"
)

// PathFunc resolves the request path at execute time, so a single Request
// can follow a moving target (route params, selected record, etc.).
type PathFunc func() string

// Options bind call defaults at creation time. Batch knobs here can be
// overridden per Execute call.
type Options struct {
	Method  string // get/post/put/patch/delete, case-insensitive; default GET
	Body    interface{}
	Query   map[string]interface{}
	Headers map[string]string

	// ErrorContext labels errors in default reporting and is passed to
	// OnError alongside each structured error.
	ErrorContext string

	// OnError, if set, receives every error as it occurs (once per failing
	// item in batch mode) in place of the default log report.
	OnError func(err error, errorContext string)

	// DisableBatch forces single-item semantics even when a list-shaped
	// option is passed to Execute.
	DisableBatch bool

	ChunkSize   int
	Concurrency int
	OnProgress  func(batch.Snapshot)

	Logger *logger.Logger
}

// ExecuteOptions are per-call overrides. IDs triggers batch mode on
// PATCH/DELETE requests, Files on POST requests; ID appends a single path
// segment for single-item addressing.
type ExecuteOptions struct {
	Body  interface{}
	ID    string
	IDs   []string
	Files []client.File

	ChunkSize   int
	Concurrency int
	OnProgress  func(batch.Snapshot)
}

// Request owns one logical call's observable state. Data, Err and Pending
// are safe for concurrent reads; concurrent Execute calls on the same
// Request are not coordinated and the later settle wins.
type Request struct {
	exec   *client.Executor
	path   PathFunc
	opts   Options
	logger *logger.Logger

	mu       sync.RWMutex
	data     interface{}
	err      error
	pending  bool
	outcomes []batch.Outcome
}

// New creates a Request for a static path or a PathFunc.
func New(exec *client.Executor, path interface{}, opts Options) (*Request, error) {
	if exec == nil {
		return nil, &client.ConfigError{Field: "executor", Reason: "executor is required"}
	}

	var pathFn PathFunc
	switch p := path.(type) {
	case string:
		pathFn = func() string { return p }
	case func() string:
		pathFn = p
	case PathFunc:
		pathFn = p
	default:
		return nil, &client.ConfigError{Field: "path", Reason: "path must be a string or func() string"}
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	return &Request{
		exec:   exec,
		path:   pathFn,
		opts:   opts,
		logger: log.WithField(logger.FieldComponent, "request"),
	}, nil
}

// Data returns the last successful result: the single response value, or in
// batch mode the ordered array of per-index results with nil for failed
// slots.
func (r *Request) Data() interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data
}

// Err returns the last structured error. It is only set by single-item
// failures; batch mode favors partial-success semantics and reports item
// failures through the outcome log instead.
func (r *Request) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Pending reports whether an Execute call is in flight, covering the entire
// batch duration including chunk waits.
func (r *Request) Pending() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pending
}

// Outcomes returns the per-item outcome log of the last batch Execute, in
// completion order. Nil after single-item calls.
func (r *Request) Outcomes() []batch.Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.outcomes == nil {
		return nil
	}
	out := make([]batch.Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Execute runs the call. The dispatch between single and batch mode is
// decided here, once, from the configured method and the supplied options;
// the batch scheduler itself never infers intent.
//
// Single mode returns the same error it stores in state, so callers may use
// either contract. Batch mode returns the ordered results array and a nil
// error even under partial (or total) item failure.
func (r *Request) Execute(ctx context.Context, opts ExecuteOptions) (interface{}, error) {
	method := strings.ToUpper(r.opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	requestID := uuid.NewString()
	log := r.logger.WithFields(logger.Fields{
		logger.FieldRequestID: requestID,
		logger.FieldMethod:    method,
		logger.FieldPath:      r.path(),
	})
	// Downstream layers (batch engine, HTTP executor) pick the logger up from
	// context, so their log lines share the request_id.
	ctx = log.WithContext(ctx)

	r.mu.Lock()
	r.pending = true
	r.mu.Unlock()

	inv, ignoredList := classify(method, r.opts.DisableBatch, opts, r.opts.Body)
	if ignoredList {
		log.Warn("List option (ids/files) ignored: method is not batch-capable, falling back to single-item")
	}

	switch v := inv.(type) {
	case batchByID:
		return r.executeBatch(ctx, log, len(v.IDs), opts, func(ctx context.Context, _ interface{}, idx int) (interface{}, error) {
			return r.exec.Execute(ctx, joinPath(r.path(), v.IDs[idx]), client.Options{
				Method:  method,
				Body:    v.Body,
				Query:   r.opts.Query,
				Headers: r.opts.Headers,
			})
		})
	case batchByFile:
		return r.executeBatch(ctx, log, len(v.Files), opts, func(ctx context.Context, _ interface{}, idx int) (interface{}, error) {
			return r.exec.Execute(ctx, r.path(), client.Options{
				Method:  method,
				Headers: r.opts.Headers,
				Query:   r.opts.Query,
				Files:   []client.File{v.Files[idx]},
			})
		})
	default:
		single := v.(singleCall)
		return r.executeSingle(ctx, method, single)
	}
}

func (r *Request) executeSingle(ctx context.Context, method string, call singleCall) (interface{}, error) {
	path := r.path()
	if call.ID != "" {
		path = joinPath(path, call.ID)
	}

	data, err := r.exec.Execute(ctx, path, client.Options{
		Method:  method,
		Body:    call.Body,
		Query:   r.opts.Query,
		Headers: r.opts.Headers,
	})

	r.mu.Lock()
	r.pending = false
	r.outcomes = nil
	if err != nil {
		r.data = nil
		r.err = err
	} else {
		r.data = data
		r.err = nil
	}
	r.mu.Unlock()

	if err != nil {
		r.report(err)
		return nil, err
	}
	return data, nil
}

func (r *Request) executeBatch(ctx context.Context, log *logger.Logger, total int, opts ExecuteOptions, worker batch.Worker) (interface{}, error) {
	items := make([]interface{}, total)
	for i := range items {
		items[i] = i
	}

	cfg := batch.Config{
		ChunkSize:   r.opts.ChunkSize,
		Concurrency: r.opts.Concurrency,
		OnProgress:  r.opts.OnProgress,
		Logger:      log,
	}
	if opts.ChunkSize != 0 {
		cfg.ChunkSize = opts.ChunkSize
	}
	if opts.Concurrency != 0 {
		cfg.Concurrency = opts.Concurrency
	}
	if opts.OnProgress != nil {
		cfg.OnProgress = opts.OnProgress
	}

	// Item failures are reported as they occur; the run itself still
	// settles with partial-success semantics.
	reporting := func(ctx context.Context, item interface{}, idx int) (interface{}, error) {
		res, err := worker(ctx, item, idx)
		if err != nil {
			r.report(err)
		}
		return res, err
	}

	results, outcomes, err := batch.Run(ctx, items, cfg, reporting)

	r.mu.Lock()
	r.pending = false
	r.outcomes = outcomes
	if err != nil {
		// Configuration error or cancellation, not an item failure.
		r.data = nil
		r.err = err
	} else {
		r.data = results
		r.err = nil
	}
	r.mu.Unlock()

	if err != nil {
		r.report(err)
		return nil, err
	}
	return results, nil
}

// report routes an error to the caller's OnError handler, or to the default
// log report labeled with ErrorContext.
func (r *Request) report(err error) {
	if r.opts.OnError != nil {
		r.opts.OnError(err, r.opts.ErrorContext)
		return
	}

	log := r.logger
	if r.opts.ErrorContext != "" {
		log = log.WithField("error_context", r.opts.ErrorContext)
	}
	if re, ok := client.AsRequestError(err); ok {
		log = log.WithFields(logger.Fields{
			logger.FieldStatus: re.Status,
			"error_data":       fmt.Sprintf("%v", re.Data),
		})
	}
	log.WithError(err).Error("Request failed")
}

func joinPath(base, segment string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(segment, "/")
}

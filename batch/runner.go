// Package batch implements the partitioning and scheduling engine for bulk
// operations: it splits N items into sequential chunks, bounds in-flight
// work inside each chunk, drives a caller-supplied worker per item, and
// reports live progress after every settled item.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dothinh115/enfyra-sdk-go/internal/logger"
	"github.com/dothinh115/enfyra-sdk-go/metrics"
)

var (
	// ErrInvalidChunkSize is returned for a negative chunk size. Zero means
	// unset: the whole item list is treated as a single chunk.
	ErrInvalidChunkSize = errors.New("batch: chunk size must not be negative")

	// ErrInvalidConcurrency is returned for a negative concurrency limit.
	// Zero means unset: every item of a chunk is launched at once.
	ErrInvalidConcurrency = errors.New("batch: concurrency limit must not be negative")

	// ErrNilWorker is returned when Run is called without a worker.
	ErrNilWorker = errors.New("batch: worker must not be nil")
)

// Worker executes one item. The returned value becomes the item's result;
// a non-nil error marks the item failed without affecting the rest of the
// run.
type Worker func(ctx context.Context, item interface{}, index int) (interface{}, error)

// Config controls one batch run.
type Config struct {
	// ChunkSize bounds how many items are considered together. The last
	// chunk may be shorter. Zero treats the whole input as one chunk.
	ChunkSize int

	// Concurrency bounds how many items of the current chunk are in flight
	// at once. Zero launches the whole chunk concurrently.
	Concurrency int

	// OnProgress, if set, is invoked with a fresh Snapshot after every
	// settled item. Invocations are serialized, so successive snapshots are
	// monotonic.
	OnProgress func(Snapshot)

	Logger *logger.Logger
}

// Run executes the worker once per item and returns the results positioned
// by submission index (nil for failed slots), plus the outcome log in
// completion order. Individual failures never fail the run; the only error
// cases are invalid configuration and context cancellation. On cancellation
// no new work is scheduled, in-flight items settle and are recorded, and
// ctx.Err() is returned alongside the partial results.
func Run(ctx context.Context, items []interface{}, cfg Config, worker Worker) ([]interface{}, []Outcome, error) {
	if cfg.ChunkSize < 0 {
		return nil, nil, ErrInvalidChunkSize
	}
	if cfg.Concurrency < 0 {
		return nil, nil, ErrInvalidConcurrency
	}
	if worker == nil {
		return nil, nil, ErrNilWorker
	}

	n := len(items)
	if n == 0 {
		return []interface{}{}, nil, nil
	}

	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = n
	}
	totalBatches := (n + chunkSize - 1) / chunkSize

	log := cfg.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	log = log.WithFields(logger.Fields{
		logger.FieldComponent: "batch",
		logger.FieldBatchID:   uuid.NewString(),
	})
	// Workers inherit the batch-scoped logger, so transport log lines carry
	// the batch_id.
	ctx = log.WithContext(ctx)

	metrics.ObserveBatchStart()

	tracker := NewTracker(n, totalBatches)
	results := make([]interface{}, n)

	// Serializes Record + OnProgress so callers observe monotonic snapshots
	// even though items of a wave settle concurrently.
	var progressMu sync.Mutex
	settle := func(o Outcome) {
		metrics.ObserveBatchItem(string(o.Status))
		progressMu.Lock()
		snap := tracker.Record(o)
		if cfg.OnProgress != nil {
			cfg.OnProgress(snap)
		}
		progressMu.Unlock()
	}

	log.WithFields(logger.Fields{
		"total":         n,
		"total_batches": totalBatches,
		"chunk_size":    chunkSize,
		"concurrency":   cfg.Concurrency,
	}).Debug("Starting batch run")

	for chunk := 0; chunk*chunkSize < n; chunk++ {
		lo := chunk * chunkSize
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}

		if err := ctx.Err(); err != nil {
			return results, tracker.Outcomes(), err
		}

		tracker.StartChunk(chunk + 1)

		limit := cfg.Concurrency
		if limit == 0 || limit > hi-lo {
			limit = hi - lo
		}

		// Waves are sequential: the next one starts only after every item
		// of the current one has settled.
		for waveLo := lo; waveLo < hi; waveLo += limit {
			if err := ctx.Err(); err != nil {
				return results, tracker.Outcomes(), err
			}

			waveHi := waveLo + limit
			if waveHi > hi {
				waveHi = hi
			}

			tracker.Launch(waveHi - waveLo)

			var wg sync.WaitGroup
			for i := waveLo; i < waveHi; i++ {
				wg.Add(1)
				go func(idx int) {
					defer wg.Done()

					start := time.Now()
					res, err := invoke(ctx, worker, items[idx], idx)
					outcome := Outcome{
						Index:      idx,
						DurationMs: time.Since(start).Milliseconds(),
					}

					if err != nil {
						outcome.Status = StatusFailed
						outcome.Err = err
						outcome.Error = err.Error()
						log.WithField("index", idx).WithError(err).Warn("Batch item failed")
					} else {
						outcome.Status = StatusCompleted
						outcome.Result = res
						results[idx] = res
					}

					settle(outcome)
				}(i)
			}
			wg.Wait()
		}
	}

	final := tracker.Snapshot()
	if final.Failed == final.Total {
		// Partial-success semantics hide item failures from the top-level
		// error, so a fully failed run is called out here.
		log.WithField(logger.FieldCount, final.Failed).Warn("Every batch item failed")
	}
	log.WithFields(logger.Fields{
		"completed": final.Completed,
		"failed":    final.Failed,
	}).Debug("Batch run settled")

	return results, tracker.Outcomes(), nil
}

// invoke runs the worker with panic recovery so a misbehaving worker is
// recorded as a failed item instead of tearing down the scheduler.
func invoke(ctx context.Context, worker Worker, item interface{}, index int) (res interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return worker(ctx, item, index)
}

package batch

import (
	"math"
	"sync"
	"time"
)

// Status is the terminal state of one batch item.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outcome is the result of one batch item. Identity is Index, which is
// stable across the run; outcomes are appended in completion order and
// never mutated afterwards.
type Outcome struct {
	Index      int         `json:"index"`
	Status     Status      `json:"status"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	DurationMs int64       `json:"durationMs"`

	// Err is the underlying error for failed items; Error above carries the
	// message on the wire.
	Err error `json:"-"`
}

// Snapshot is a derived, read-only view of batch progress, recomputed on
// every settled item. Completed counts settled items (success or failure);
// the outcome statuses distinguish the two. AverageTimeMs,
// OperationsPerSecond and EstimatedRemainingMs stay zero until the first
// item settles.
type Snapshot struct {
	ProgressPercent      int       `json:"progressPercent"`
	Completed            int       `json:"completed"`
	Total                int       `json:"total"`
	Failed               int       `json:"failed"`
	InProgress           int       `json:"inProgress"`
	CurrentBatch         int       `json:"currentBatchIndex"`
	TotalBatches         int       `json:"totalBatches"`
	AverageTimeMs        int64     `json:"averageTimeMs,omitempty"`
	OperationsPerSecond  float64   `json:"operationsPerSecond,omitempty"`
	EstimatedRemainingMs int64     `json:"estimatedRemainingMs,omitempty"`
	Results              []Outcome `json:"results"`
}

// Tracker accumulates outcomes for one batch run and derives Snapshots.
// It only computes values; invoking the caller's progress callback is the
// runner's job. A Tracker is scoped to a single run and never reused.
type Tracker struct {
	mu sync.Mutex

	start        time.Time
	total        int
	totalBatches int

	outcomes      []Outcome
	settled       int
	failed        int
	inProgress    int
	currentBatch  int
	sumDurationMs int64

	now func() time.Time // test clock; time.Now when nil
}

// NewTracker creates a tracker for a run of total items split into
// totalBatches chunks. The start timestamp is captured here.
func NewTracker(total, totalBatches int) *Tracker {
	return &Tracker{
		start:        time.Now(),
		total:        total,
		totalBatches: totalBatches,
		outcomes:     make([]Outcome, 0, total),
	}
}

// StartChunk marks chunk index (1-based) as the one currently running.
func (t *Tracker) StartChunk(index int) {
	t.mu.Lock()
	t.currentBatch = index
	t.mu.Unlock()
}

// Launch records n items as in flight.
func (t *Tracker) Launch(n int) {
	t.mu.Lock()
	t.inProgress += n
	t.mu.Unlock()
}

// Record logs one settled outcome and returns the snapshot derived from the
// accumulated log.
func (t *Tracker) Record(o Outcome) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.outcomes = append(t.outcomes, o)
	t.settled++
	t.inProgress--
	t.sumDurationMs += o.DurationMs
	if o.Status == StatusFailed {
		t.failed++
	}

	return t.snapshotLocked()
}

// Snapshot returns the current progress view without recording anything.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Outcomes returns a copy of the outcome log in completion order.
func (t *Tracker) Outcomes() []Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Outcome, len(t.outcomes))
	copy(out, t.outcomes)
	return out
}

func (t *Tracker) snapshotLocked() Snapshot {
	snap := Snapshot{
		Completed:    t.settled,
		Total:        t.total,
		Failed:       t.failed,
		InProgress:   t.inProgress,
		CurrentBatch: t.currentBatch,
		TotalBatches: t.totalBatches,
		Results:      make([]Outcome, len(t.outcomes)),
	}
	copy(snap.Results, t.outcomes)

	// Percent is defined as 0 when total is 0.
	if t.total > 0 {
		snap.ProgressPercent = int(math.Round(float64(t.settled) / float64(t.total) * 100))
	}

	if t.settled > 0 {
		snap.AverageTimeMs = t.sumDurationMs / int64(t.settled)

		elapsedMs := t.elapsed().Milliseconds()
		if elapsedMs < 1 {
			elapsedMs = 1
		}
		snap.OperationsPerSecond = float64(t.settled) / float64(elapsedMs) * 1000

		snap.EstimatedRemainingMs = snap.AverageTimeMs * int64(t.total-t.settled)
	}

	return snap
}

func (t *Tracker) elapsed() time.Duration {
	if t.now != nil {
		return t.now().Sub(t.start)
	}
	return time.Since(t.start)
}

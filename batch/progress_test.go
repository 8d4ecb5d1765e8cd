package batch

import (
	"testing"
	"time"
)

func TestTrackerSnapshotMath(t *testing.T) {
	tr := NewTracker(4, 2)
	// Fixed clock: 1 second after start.
	start := tr.start
	tr.now = func() time.Time { return start.Add(time.Second) }

	tr.StartChunk(1)
	tr.Launch(2)

	snap := tr.Record(Outcome{Index: 0, Status: StatusCompleted, DurationMs: 100})
	if snap.Completed != 1 || snap.Failed != 0 {
		t.Errorf("got completed=%d failed=%d, want 1/0", snap.Completed, snap.Failed)
	}
	if snap.InProgress != 1 {
		t.Errorf("got inProgress=%d, want 1", snap.InProgress)
	}
	if snap.ProgressPercent != 25 {
		t.Errorf("got percent=%d, want 25", snap.ProgressPercent)
	}
	if snap.AverageTimeMs != 100 {
		t.Errorf("got averageTimeMs=%d, want 100", snap.AverageTimeMs)
	}
	// 1 settled in 1000ms elapsed.
	if snap.OperationsPerSecond != 1 {
		t.Errorf("got opsPerSecond=%f, want 1", snap.OperationsPerSecond)
	}
	// 3 remaining at 100ms each.
	if snap.EstimatedRemainingMs != 300 {
		t.Errorf("got estimatedRemainingMs=%d, want 300", snap.EstimatedRemainingMs)
	}

	snap = tr.Record(Outcome{Index: 1, Status: StatusFailed, DurationMs: 300})
	if snap.Completed != 2 || snap.Failed != 1 {
		t.Errorf("got completed=%d failed=%d, want 2/1", snap.Completed, snap.Failed)
	}
	if snap.AverageTimeMs != 200 {
		t.Errorf("got averageTimeMs=%d, want 200", snap.AverageTimeMs)
	}
	if snap.CurrentBatch != 1 || snap.TotalBatches != 2 {
		t.Errorf("got chunk %d/%d, want 1/2", snap.CurrentBatch, snap.TotalBatches)
	}
}

func TestTrackerDerivedFieldsZeroBeforeFirstCompletion(t *testing.T) {
	tr := NewTracker(3, 1)
	tr.Launch(3)

	snap := tr.Snapshot()
	if snap.AverageTimeMs != 0 || snap.OperationsPerSecond != 0 || snap.EstimatedRemainingMs != 0 {
		t.Errorf("derived fields must stay zero before the first settled item: %+v", snap)
	}
	if snap.InProgress != 3 {
		t.Errorf("got inProgress=%d, want 3", snap.InProgress)
	}
}

func TestTrackerZeroTotal(t *testing.T) {
	tr := NewTracker(0, 0)
	snap := tr.Snapshot()
	if snap.ProgressPercent != 0 {
		t.Errorf("percent must be 0 when total is 0, got %d", snap.ProgressPercent)
	}
}

func TestTrackerResultsAreCopies(t *testing.T) {
	tr := NewTracker(2, 1)
	tr.Launch(2)
	first := tr.Record(Outcome{Index: 0, Status: StatusCompleted})
	second := tr.Record(Outcome{Index: 1, Status: StatusCompleted})

	if len(first.Results) != 1 {
		t.Fatalf("got %d results in first snapshot, want 1", len(first.Results))
	}
	if len(second.Results) != 2 {
		t.Fatalf("got %d results in second snapshot, want 2", len(second.Results))
	}
	// Mutating a snapshot copy must not leak back into the log.
	first.Results[0].Index = 99
	if got := tr.Outcomes()[0].Index; got != 0 {
		t.Errorf("outcome log mutated through a snapshot copy: index=%d", got)
	}
}

func TestTrackerOutcomesCompletionOrder(t *testing.T) {
	tr := NewTracker(3, 1)
	tr.Launch(3)
	tr.Record(Outcome{Index: 2, Status: StatusCompleted})
	tr.Record(Outcome{Index: 0, Status: StatusFailed})
	tr.Record(Outcome{Index: 1, Status: StatusCompleted})

	got := tr.Outcomes()
	want := []int{2, 0, 1}
	for i, o := range got {
		if o.Index != want[i] {
			t.Errorf("outcome %d: got index %d, want %d", i, o.Index, want[i])
		}
	}
}

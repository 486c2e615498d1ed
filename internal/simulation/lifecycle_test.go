package simulation

import (
	"testing"
	"time"

	"combatsim/broker/internal/logging"
)

func TestLifecycleTransitions(t *testing.T) {
	cases := []struct {
		event string
		want  Status
	}{
		{event: eventComplete, want: StatusCompleted},
		{event: eventCancel, want: StatusCancelled},
		{event: eventAbort, want: StatusAborted},
		{event: eventFail, want: StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			lc := newLifecycle(logging.NewTestLogger())
			if lc.status() != StatusIdle {
				t.Fatalf("expected idle, got %s", lc.status())
			}
			if err := lc.fire(eventStart); err != nil {
				t.Fatalf("start: %v", err)
			}
			if err := lc.fire(tc.event); err != nil {
				t.Fatalf("%s: %v", tc.event, err)
			}
			if lc.status() != tc.want || !lc.status().Terminal() {
				t.Fatalf("expected terminal %s, got %s", tc.want, lc.status())
			}
			//1.- Terminal states accept nothing further.
			if err := lc.fire(eventStart); err == nil {
				t.Fatal("expected restart to be rejected")
			}
		})
	}
}

func TestLifecycleRejectsCompletionBeforeStart(t *testing.T) {
	lc := newLifecycle(logging.NewTestLogger())
	if err := lc.fire(eventComplete); err == nil {
		t.Fatal("expected an idle run to reject completion")
	}
	if lc.status() != StatusIdle {
		t.Fatalf("rejected transition changed state to %s", lc.status())
	}
}

func TestMonitorAggregatesBatches(t *testing.T) {
	monitor := NewMonitor()
	monitor.ObserveBatch(100, 20*time.Millisecond)
	monitor.ObserveBatch(100, 60*time.Millisecond)
	monitor.ObserveBatch(0, time.Second)
	monitor.ObserveRun(StatusCompleted)

	snapshot := monitor.Snapshot()
	if snapshot.Batches != 2 || snapshot.Trials != 200 {
		t.Fatalf("unexpected counts %+v", snapshot)
	}
	if snapshot.AverageBatch != 40*time.Millisecond || snapshot.MaxBatch != 60*time.Millisecond || snapshot.LastBatch != 60*time.Millisecond {
		t.Fatalf("unexpected timings %+v", snapshot)
	}
	if got := snapshot.TrialsPerSecond(); got < 2499 || got > 2501 {
		t.Fatalf("expected 2500 trials per second, got %v", got)
	}
	if snapshot.Runs[StatusCompleted] != 1 {
		t.Fatalf("expected one completed run, got %v", snapshot.Runs)
	}

	monitor.Reset()
	if snapshot := monitor.Snapshot(); snapshot.Batches != 0 || len(snapshot.Runs) != 0 {
		t.Fatalf("expected reset monitor, got %+v", snapshot)
	}
}

package simulation

import (
	"sync"
	"time"
)

// MetricsSnapshot summarises observed batch durations and run outcomes.
type MetricsSnapshot struct {
	Batches      int
	Trials       int64
	AverageBatch time.Duration
	MaxBatch     time.Duration
	LastBatch    time.Duration
	Runs         map[Status]int64
}

// TrialsPerSecond derives throughput from the sampled batch durations.
func (s MetricsSnapshot) TrialsPerSecond() float64 {
	if s.Batches == 0 || s.AverageBatch <= 0 {
		return 0
	}
	total := s.AverageBatch * time.Duration(s.Batches)
	return float64(s.Trials) / total.Seconds()
}

// Monitor accumulates timing statistics for the trial batches of every run.
type Monitor struct {
	mu      sync.Mutex
	batches int
	trials  int64
	total   time.Duration
	max     time.Duration
	last    time.Duration
	runs    map[Status]int64
}

// NewMonitor constructs an empty monitor ready to collect samples.
func NewMonitor() *Monitor {
	return &Monitor{runs: make(map[Status]int64)}
}

// ObserveBatch records the duration of a completed batch of trials.
func (m *Monitor) ObserveBatch(trials int, duration time.Duration) {
	if m == nil || trials <= 0 {
		return
	}
	m.mu.Lock()
	//1.- Accumulate the sample count and aggregate duration for average calculations.
	m.batches++
	m.trials += int64(trials)
	m.total += duration
	//2.- Track the slowest batch so operators can spot expensive scenarios.
	if duration > m.max {
		m.max = duration
	}
	m.last = duration
	m.mu.Unlock()
}

// ObserveRun counts a finished run by its terminal status.
func (m *Monitor) ObserveRun(status Status) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.runs[status]++
	m.mu.Unlock()
}

// Snapshot returns a copy of the aggregated statistics.
func (m *Monitor) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := MetricsSnapshot{
		Batches:   m.batches,
		Trials:    m.trials,
		MaxBatch:  m.max,
		LastBatch: m.last,
		Runs:      make(map[Status]int64, len(m.runs)),
	}
	if m.batches > 0 {
		snapshot.AverageBatch = m.total / time.Duration(m.batches)
	}
	for status, count := range m.runs {
		snapshot.Runs[status] = count
	}
	return snapshot
}

// Reset clears the accumulated statistics.
func (m *Monitor) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.batches = 0
	m.trials = 0
	m.total = 0
	m.max = 0
	m.last = 0
	m.runs = make(map[Status]int64)
	m.mu.Unlock()
}

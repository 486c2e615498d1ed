package simulation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrRunNotFound is returned when cancelling a run the registry does not track.
var ErrRunNotFound = errors.New("simulation: run not found")

// RunInfo describes an active run.
type RunInfo struct {
	ID        string    `json:"id"`
	Bot       string    `json:"bot"`
	Status    Status    `json:"status"`
	Requested int       `json:"trialsRequested"`
	Completed int       `json:"trialsCompleted"`
	StartedAt time.Time `json:"startedAt"`
}

type registryEntry struct {
	info      RunInfo
	cancel    context.CancelFunc
	lifecycle *lifecycle
}

// Registry tracks in-flight runs so they can be listed and cancelled.
type Registry struct {
	mu   sync.Mutex
	runs map[string]*registryEntry
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*registryEntry)}
}

func (r *Registry) add(info RunInfo, cancel context.CancelFunc, lc *lifecycle) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.runs[info.ID] = &registryEntry{info: info, cancel: cancel, lifecycle: lc}
	r.mu.Unlock()
}

func (r *Registry) progress(id string, completed int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if entry, ok := r.runs[id]; ok {
		entry.info.Completed = completed
	}
	r.mu.Unlock()
}

func (r *Registry) remove(id string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.runs, id)
	r.mu.Unlock()
}

// Cancel requests cooperative cancellation of the run. The run stops at its next batch
// boundary and reports the trials completed so far.
func (r *Registry) Cancel(id string) error {
	if r == nil {
		return ErrRunNotFound
	}
	r.mu.Lock()
	entry, ok := r.runs[id]
	r.mu.Unlock()
	if !ok {
		return ErrRunNotFound
	}
	entry.cancel()
	return nil
}

// List returns the active runs, oldest first.
func (r *Registry) List() []RunInfo {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	runs := make([]RunInfo, 0, len(r.runs))
	for _, entry := range r.runs {
		info := entry.info
		info.Status = entry.lifecycle.status()
		runs = append(runs, info)
	}
	r.mu.Unlock()
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs
}

// Len reports how many runs are active.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

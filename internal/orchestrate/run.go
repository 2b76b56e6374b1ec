// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dbvis-ukon/LLMSurver/internal/results"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// Status is a point-in-time view of a run.
type Status struct {
	RunID     int64   `json:"run_id"`
	Completed int     `json:"completed"`
	Target    int     `json:"target"`
	Progress  float64 `json:"progress"`
	Cancelled bool    `json:"cancelled"`
	Settled   bool    `json:"settled"`
	// Finished is true when every attempt completed.
	Finished bool `json:"finished"`
}

// Run is one execution in progress or settled.
type Run struct {
	id        int64
	target    int64
	completed atomic.Int64
	results   *results.Store

	stop   context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	settled   bool
}

func newRun(id int64, target int, papers []types.Paper) *Run {
	stop, cancel := context.WithCancel(context.Background())
	return &Run{
		id:      id,
		target:  int64(target),
		results: results.New(papers),
		stop:    stop,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// ID returns the run identity.
func (r *Run) ID() int64 { return r.id }

// Results returns the live result store.
func (r *Run) Results() *results.Store { return r.results }

// Cancel signals every worker to stop before its next paper. In-flight
// calls finish and are recorded. It reports false when the run was already
// cancelled or has settled.
func (r *Run) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled || r.settled {
		return false
	}
	r.cancelled = true
	r.cancel()
	return true
}

func (r *Run) stopped() bool {
	return r.stop.Err() != nil
}

// Progress returns the completed share of the target in percent.
func (r *Run) Progress() float64 {
	return progress(r.completed.Load(), r.target)
}

func progress(completed, target int64) float64 {
	if target <= 0 {
		return 0
	}
	if completed >= target {
		return 100
	}
	return 100 * float64(completed) / float64(target)
}

// Status returns the current state of the run.
func (r *Run) Status() Status {
	r.mu.Lock()
	cancelled, settled := r.cancelled, r.settled
	r.mu.Unlock()

	completed := r.completed.Load()
	return Status{
		RunID:     r.id,
		Completed: int(completed),
		Target:    int(r.target),
		Progress:  progress(completed, r.target),
		Cancelled: cancelled,
		Settled:   settled,
		Finished:  completed == r.target,
	}
}

// Wait blocks until the run settles.
func (r *Run) Wait() { <-r.done }

// Done returns a channel closed when the run settles.
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) markSettled() Status {
	r.mu.Lock()
	r.settled = true
	r.mu.Unlock()
	return r.Status()
}

func (r *Run) close() {
	r.cancel()
	close(r.done)
}

package queue

import (
	"sync"
	"time"
)

// fetchResult is the outcome of one stamped fetch
type fetchResult struct {
	seq  uint64
	plan RenderPlan
	err  error
	at   time.Time
}

// ViewState is an immutable copy of the rendered queue
type ViewState struct {
	Seq       uint64     // Sequence of the newest applied fetch (0 = none yet)
	Plan      RenderPlan // Rows from the newest successful fetch
	Loaded    bool       // At least one fetch succeeded
	Err       error      // Set when the newest applied fetch failed; rows are kept
	UpdatedAt time.Time  // Completion time of the newest successful fetch
}

// View holds the rendered queue state.
// applyRenderPlan is the only way to change it.
type View struct {
	mu    sync.RWMutex
	state ViewState
}

// NewView creates an empty view
func NewView() *View {
	return &View{}
}

// applyRenderPlan applies a fetch result if it is newer than the last one applied.
// A failed result keeps the current rows and only sets the error indicator.
func (v *View) applyRenderPlan(r fetchResult) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if r.seq <= v.state.Seq {
		return false
	}

	v.state.Seq = r.seq
	if r.err != nil {
		v.state.Err = r.err
		return true
	}

	v.state.Plan = r.plan
	v.state.Loaded = true
	v.state.Err = nil
	v.state.UpdatedAt = r.at
	return true
}

// State returns a copy of the current state
func (v *View) State() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := v.state
	s.Plan.Rows = append([]Row(nil), v.state.Plan.Rows...)
	return s
}

// Package control tracks in-flight research runs so callers can stop them.
package control

import (
	"sync"
	"sync/atomic"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// Plane is the control surface of one in-flight run. Cancelling stops the
// coordinator from launching further interviews; interviews already running
// are allowed to finish.
type Plane struct {
	runID     string
	cancelled atomic.Bool
	once      sync.Once
	done      chan struct{}
}

// NewPlane creates a plane for runID.
func NewPlane(runID string) *Plane {
	return &Plane{runID: runID, done: make(chan struct{})}
}

// RunID returns the run this plane controls.
func (p *Plane) RunID() string { return p.runID }

// Cancel requests cancellation. Safe to call more than once.
func (p *Plane) Cancel() {
	p.cancelled.Store(true)
	p.once.Do(func() { close(p.done) })
}

// IsCancelled reports whether Cancel was called.
func (p *Plane) IsCancelled() bool {
	return p.cancelled.Load()
}

// Cancelled is closed once Cancel is called.
func (p *Plane) Cancelled() <-chan struct{} {
	return p.done
}

// CheckCancelled returns an error if the run has been cancelled.
func (p *Plane) CheckCancelled() error {
	if p.cancelled.Load() {
		return core.ErrState("CANCELLED", "run cancelled by user")
	}
	return nil
}

// Registry maps run ids to the planes of runs executing in this process.
type Registry struct {
	mu     sync.Mutex
	planes map[string]*Plane
	wg     sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{planes: make(map[string]*Plane)}
}

// Acquire registers a plane for runID. It returns false when the run is
// already executing here.
func (r *Registry) Acquire(runID string) (*Plane, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.planes[runID]; busy {
		return nil, false
	}
	p := NewPlane(runID)
	r.planes[runID] = p
	r.wg.Add(1)
	return p, true
}

// Release unregisters p.
func (r *Registry) Release(p *Plane) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.planes[p.runID]; ok && cur == p {
		delete(r.planes, p.runID)
		r.wg.Done()
	}
}

// Get returns the plane of an executing run.
func (r *Registry) Get(runID string) (*Plane, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.planes[runID]
	return p, ok
}

// Cancel cancels runID if it is executing here.
func (r *Registry) Cancel(runID string) bool {
	p, ok := r.Get(runID)
	if ok {
		p.Cancel()
	}
	return ok
}

// Running returns the ids of executing runs.
func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.planes))
	for id := range r.planes {
		ids = append(ids, id)
	}
	return ids
}

// Wait blocks until every acquired plane has been released.
func (r *Registry) Wait() {
	r.wg.Wait()
}

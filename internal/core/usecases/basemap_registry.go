package usecases

import (
	"sync"

	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

// Promotable is an overlay waiting for the basemap engine to load.
type Promotable interface {
	// Promote is called once the engine is available. It is invoked off the
	// overlay's session loop and must not block on it.
	Promote()
}

// BasemapRegistry tracks overlays constructed before the basemap engine
// finished loading. One registry is shared by every session of a process.
type BasemapRegistry struct {
	mu      sync.Mutex
	ready   bool
	pending []Promotable
}

func NewBasemapRegistry() *BasemapRegistry {
	return &BasemapRegistry{}
}

// Register queues p unless the engine is already available, in which case
// it returns true and the caller initialises p itself.
func (r *BasemapRegistry) Register(p Promotable) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return true
	}
	r.pending = append(r.pending, p)
	metrics.BasemapPending.Set(float64(len(r.pending)))
	return false
}

// Unregister drops p if it is still waiting.
func (r *BasemapRegistry) Unregister(p Promotable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.pending {
		if q == p {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			break
		}
	}
	metrics.BasemapPending.Set(float64(len(r.pending)))
}

// DrainAndPromote marks the engine ready and promotes every waiting overlay.
// The list is swapped out before any promotion runs, so overlays constructed
// during promotion see a ready registry and are never promoted twice.
func (r *BasemapRegistry) DrainAndPromote() int {
	r.mu.Lock()
	r.ready = true
	drained := r.pending
	r.pending = nil
	r.mu.Unlock()
	metrics.BasemapPending.Set(0)

	for _, p := range drained {
		p.Promote()
	}
	metrics.BasemapPromotions.Add(float64(len(drained)))
	return len(drained)
}

// Ready reports whether the engine has loaded.
func (r *BasemapRegistry) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Pending returns the number of waiting overlays.
func (r *BasemapRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

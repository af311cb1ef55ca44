package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks every open Endpoint so the embedding server can
// broadcast to all of them, generalizing the teacher's hub.go from one
// fixed progress-message broadcast into a bookkeeping layer over
// arbitrary endpoints. It holds no persistent state; an endpoint that
// disconnects is simply gone (spec.md's persistence Non-goal, SPEC_FULL.md
// section 2).
type Registry struct {
	mu        sync.RWMutex
	endpoints map[uuid.UUID]*Endpoint
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[uuid.UUID]*Endpoint)}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep *Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[ep.ID] = ep
}

// Unregister removes an endpoint from the registry. Safe to call more
// than once for the same endpoint.
func (r *Registry) Unregister(ep *Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, ep.ID)
}

// Count returns the number of registered endpoints.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

// Broadcast sends text to every registered endpoint concurrently,
// skipping any that error (closed endpoints, slow peers) rather than
// letting one bad connection stall the rest; it returns the endpoint
// IDs that failed.
func (r *Registry) Broadcast(ctx context.Context, text string) []uuid.UUID {
	r.mu.RLock()
	targets := make([]*Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		targets = append(targets, ep)
	}
	r.mu.RUnlock()

	var mu sync.Mutex
	var failed []uuid.UUID
	var wg sync.WaitGroup
	for _, ep := range targets {
		wg.Add(1)
		go func(ep *Endpoint) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := ep.SendText(text, nil); err != nil {
				mu.Lock()
				failed = append(failed, ep.ID)
				mu.Unlock()
			}
		}(ep)
	}
	wg.Wait()
	return failed
}

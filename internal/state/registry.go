package state

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type registryEntry struct {
	inst     *Instance
	lastSeen time.Time
}

// Registry maps browser sessions to client instances and evicts instances
// that have been idle longer than the session lifetime.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*registryEntry
	create    func(id string) *Instance
	idle      time.Duration
	now       func() time.Time
}

// NewRegistry creates a Registry that builds missing instances with create.
func NewRegistry(create func(id string) *Instance, idle time.Duration) *Registry {
	return &Registry{
		instances: make(map[string]*registryEntry),
		create:    create,
		idle:      idle,
		now:       time.Now,
	}
}

// Get returns the instance for id, creating it on first use.
func (r *Registry) Get(id string) *Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.instances[id]
	if !ok {
		e = &registryEntry{inst: r.create(id)}
		r.instances[id] = e
		slog.Debug("client instance created", "instance", id)
	}
	e.lastSeen = r.now()
	return e.inst
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// Sweep closes and removes instances idle since before now minus the idle
// window. It returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	var stale []*Instance

	r.mu.Lock()
	for id, e := range r.instances {
		if now.Sub(e.lastSeen) > r.idle {
			stale = append(stale, e.inst)
			delete(r.instances, id)
		}
	}
	r.mu.Unlock()

	for _, inst := range stale {
		inst.Close()
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				slog.Info("evicted idle client instances", "count", n)
			}
		}
	}
}

// Close closes every instance.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.instances
	r.instances = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.inst.Close()
	}
}

// Package resource implements dependency-keyed asynchronous reads.
//
// A Binding re-evaluates its fetch function whenever the tracked key changes
// by value. Every evaluation is tagged with a generation number and only the
// most recently issued one may commit, whatever order results arrive in.
package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// State is a snapshot of a Binding.
type State[K comparable, V any] struct {
	// Key is the key the committed result belongs to.
	Key K
	// Pending is true while an evaluation is in flight. A Ready state that is
	// also Pending shows the last result while a refetch runs.
	Pending bool
	// Ready is true once any evaluation has committed.
	Ready bool
	Value V
	Err   error
	// Revision counts committed results.
	Revision uint64
}

// Loading reports whether there is nothing to show yet.
func (s State[K, V]) Loading() bool {
	return s.Pending && !s.Ready
}

// For returns s if it belongs to key. A state committed for any other key
// is reported as a pending load of key so that no other key's value is shown.
func (s State[K, V]) For(key K) State[K, V] {
	if s.Key == key {
		return s
	}
	return State[K, V]{Key: key, Pending: true}
}

// FetchFunc loads the value for key.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Option configures a Binding.
type Option[K comparable, V any] func(*Binding[K, V])

// WithShortCircuit makes keys for which skip returns true resolve immediately
// to the zero value without calling fetch.
func WithShortCircuit[K comparable, V any](skip func(K) bool) Option[K, V] {
	return func(b *Binding[K, V]) {
		b.skip = skip
	}
}

// WithOnCommit registers fn to run after every committed result, outside the
// binding's lock. Superseded results never reach fn.
func WithOnCommit[K comparable, V any](fn func(State[K, V])) Option[K, V] {
	return func(b *Binding[K, V]) {
		b.onCommit = append(b.onCommit, fn)
	}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Binding is a cached asynchronous read keyed by K.
type Binding[K comparable, V any] struct {
	name  string
	fetch FetchFunc[K, V]
	skip  func(K) bool

	onCommit []func(State[K, V])

	mu      sync.Mutex
	key     K
	tracked bool
	closed  bool
	gen     uint64
	cancel  context.CancelFunc
	settled chan struct{}
	state   State[K, V]

	wg sync.WaitGroup
}

// New creates an idle Binding. Nothing is fetched until Track is called.
func New[K comparable, V any](name string, fetch FetchFunc[K, V], opts ...Option[K, V]) *Binding[K, V] {
	b := &Binding[K, V]{
		name:    name,
		fetch:   fetch,
		settled: closedChan,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the binding name used in logs.
func (b *Binding[K, V]) Name() string {
	return b.name
}

// Track declares the current key. The binding evaluates if key differs from
// the previously tracked key or if nothing was tracked yet.
func (b *Binding[K, V]) Track(key K) {
	b.mu.Lock()
	if b.closed || (b.tracked && b.key == key) {
		b.mu.Unlock()
		return
	}
	b.key = key
	b.tracked = true
	committed := b.evaluateLocked()
	st := b.state
	b.mu.Unlock()

	if committed {
		b.notify(st)
	}
}

// Refetch re-evaluates the current key, keeping the last result visible
// until the new one lands. It does nothing before the first Track.
func (b *Binding[K, V]) Refetch() {
	b.mu.Lock()
	if b.closed || !b.tracked {
		b.mu.Unlock()
		return
	}
	committed := b.evaluateLocked()
	st := b.state
	b.mu.Unlock()

	if committed {
		b.notify(st)
	}
}

// Key returns the tracked key and whether one has been tracked.
func (b *Binding[K, V]) Key() (K, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key, b.tracked
}

// Snapshot returns the current state without waiting.
func (b *Binding[K, V]) Snapshot() State[K, V] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Await blocks until the latest evaluation has settled or ctx is done, then
// returns the current state.
func (b *Binding[K, V]) Await(ctx context.Context) State[K, V] {
	for {
		b.mu.Lock()
		st, settled := b.state, b.settled
		b.mu.Unlock()

		if !st.Pending {
			return st
		}
		select {
		case <-settled:
		case <-ctx.Done():
			return b.Snapshot()
		}
	}
}

// Close cancels any in-flight evaluation, discards its result and waits for
// the fetch goroutines to return. A closed Binding ignores Track and Refetch.
func (b *Binding[K, V]) Close() {
	b.mu.Lock()
	b.closed = true
	b.gen++
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.state.Pending = false
	b.mu.Unlock()

	b.wg.Wait()
}

// evaluateLocked starts an evaluation of the tracked key. It reports whether
// the result was committed synchronously by the short circuit.
func (b *Binding[K, V]) evaluateLocked() bool {
	b.gen++
	gen := b.gen
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}

	if b.skip != nil && b.skip(b.key) {
		var zero V
		b.commitLocked(zero, nil)
		b.settled = closedChan
		return true
	}

	ctx, cancel := context.WithCancel(context.Background())
	settled := make(chan struct{})
	b.cancel = cancel
	b.settled = settled
	b.state.Pending = true

	b.wg.Add(1)
	go b.run(ctx, cancel, gen, b.key, settled)
	return false
}

func (b *Binding[K, V]) run(ctx context.Context, cancel context.CancelFunc, gen uint64, key K, settled chan struct{}) {
	defer b.wg.Done()
	defer cancel()

	v, err := b.safeFetch(ctx, key)

	b.mu.Lock()
	if gen != b.gen {
		close(settled)
		current := b.gen
		b.mu.Unlock()
		slog.Debug("discarding superseded result", "binding", b.name, "generation", gen, "current", current)
		return
	}
	b.cancel = nil
	b.commitLocked(v, err)
	st := b.state
	close(settled)
	b.mu.Unlock()

	b.notify(st)
}

func (b *Binding[K, V]) notify(st State[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("binding commit hook panicked", "binding", b.name, "panic", r)
		}
	}()
	for _, fn := range b.onCommit {
		fn(st)
	}
}

func (b *Binding[K, V]) safeFetch(ctx context.Context, key K) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("binding fetch panicked", "binding", b.name, "panic", r)
			err = fmt.Errorf("%s: %v", b.name, r)
		}
	}()
	return b.fetch(ctx, key)
}

func (b *Binding[K, V]) commitLocked(v V, err error) {
	if err != nil {
		var zero V
		v = zero
	}
	b.state = State[K, V]{
		Key:      b.key,
		Ready:    true,
		Value:    v,
		Err:      err,
		Revision: b.state.Revision + 1,
	}
}

// Package action implements triggerable asynchronous writes.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Refetcher is anything a successful write invalidates.
type Refetcher interface {
	Refetch()
}

// Result is the settled outcome of one dispatch.
type Result[Out any] struct {
	Value Out
	Err   error
}

// Call is a handle on one dispatch.
type Call[Out any] struct {
	done   chan struct{}
	result Result[Out]
	// claimed is set once the result has been handed to someone.
	claimed atomic.Bool
}

// Done is closed once the call has settled and its success effects have run.
func (c *Call[Out]) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call settles or ctx is done. The returned error is
// ctx.Err() in the latter case; the write itself keeps running.
func (c *Call[Out]) Wait(ctx context.Context) (Result[Out], error) {
	select {
	case <-c.done:
		c.claimed.Store(true)
		return c.result, nil
	case <-ctx.Done():
		return Result[Out]{}, ctx.Err()
	}
}

// RunFunc performs the write.
type RunFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Dispatcher wraps one write operation with pending and last-result state.
// At most one call is in flight at a time.
type Dispatcher[In, Out any] struct {
	name        string
	run         RunFunc[In, Out]
	onSuccess   []func(In, Out)
	invalidates []func(In) []Refetcher

	mu      sync.Mutex
	pending bool
	current *Call[Out]
	last    *Call[Out]
	lastIn  In
}

// New creates a Dispatcher for run.
func New[In, Out any](name string, run RunFunc[In, Out]) *Dispatcher[In, Out] {
	return &Dispatcher[In, Out]{name: name, run: run}
}

// OnSuccess registers fn to run after a successful write. Hooks run in
// registration order, before the call is reported settled. Register hooks
// before the first Dispatch.
func (d *Dispatcher[In, Out]) OnSuccess(fn func(In, Out)) *Dispatcher[In, Out] {
	d.onSuccess = append(d.onSuccess, fn)
	return d
}

// Invalidates declares the bindings a successful write must refetch.
// Invalidations run after the OnSuccess hooks.
func (d *Dispatcher[In, Out]) Invalidates(fn func(In) []Refetcher) *Dispatcher[In, Out] {
	d.invalidates = append(d.invalidates, fn)
	return d
}

// Dispatch starts the write unless one is already pending, in which case it
// returns the in-flight call and false. The write runs on a context that
// keeps ctx's values but not its cancellation.
func (d *Dispatcher[In, Out]) Dispatch(ctx context.Context, in In) (*Call[Out], bool) {
	d.mu.Lock()
	if d.pending {
		call := d.current
		d.mu.Unlock()
		slog.Debug("dispatch ignored while pending", "action", d.name)
		return call, false
	}
	call := &Call[Out]{done: make(chan struct{})}
	d.pending = true
	d.current = call
	d.mu.Unlock()

	go d.execute(context.WithoutCancel(ctx), in, call)
	return call, true
}

// Pending reports whether a call is in flight.
func (d *Dispatcher[In, Out]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// LastResult returns the outcome of the most recently settled call.
func (d *Dispatcher[In, Out]) LastResult() (Result[Out], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return Result[Out]{}, false
	}
	return d.last.result, true
}

// Take returns the outcome of the most recently settled call if nobody has
// received it yet, either through Call.Wait or an earlier Take.
func (d *Dispatcher[In, Out]) Take() (Result[Out], bool) {
	return d.TakeMatching(nil)
}

// TakeMatching is Take restricted to calls whose input satisfies match. A
// nil match accepts every input.
func (d *Dispatcher[In, Out]) TakeMatching(match func(In) bool) (Result[Out], bool) {
	d.mu.Lock()
	last, in := d.last, d.lastIn
	d.mu.Unlock()

	if last == nil || (match != nil && !match(in)) {
		return Result[Out]{}, false
	}
	if !last.claimed.CompareAndSwap(false, true) {
		return Result[Out]{}, false
	}
	return last.result, true
}

func (d *Dispatcher[In, Out]) execute(ctx context.Context, in In, call *Call[Out]) {
	start := time.Now()
	out, err := d.safeRun(ctx, in)
	if err == nil {
		d.settleSuccess(in, out)
		slog.Info("action succeeded", "action", d.name, "duration_ms", time.Since(start).Milliseconds())
	} else {
		slog.Warn("action failed", "action", d.name, "error", err)
	}

	res := Result[Out]{Value: out, Err: err}

	d.mu.Lock()
	d.pending = false
	d.current = nil
	d.last = call
	d.lastIn = in
	call.result = res
	close(call.done)
	d.mu.Unlock()
}

func (d *Dispatcher[In, Out]) safeRun(ctx context.Context, in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("action panicked", "action", d.name, "panic", r)
			err = fmt.Errorf("%s: %v", d.name, r)
		}
	}()
	return d.run(ctx, in)
}

func (d *Dispatcher[In, Out]) settleSuccess(in In, out Out) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("action success hook panicked", "action", d.name, "panic", r)
		}
	}()
	for _, fn := range d.onSuccess {
		fn(in, out)
	}
	for _, fn := range d.invalidates {
		for _, r := range fn(in) {
			if r != nil {
				r.Refetch()
			}
		}
	}
}

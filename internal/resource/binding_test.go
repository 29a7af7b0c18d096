package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFetch blocks every fetch until its key is released. It ignores
// cancellation so results can arrive in any order.
type gatedFetch struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	calls atomic.Int32
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{gates: make(map[string]chan struct{})}
}

func (g *gatedFetch) gate(key string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[key]
	if !ok {
		ch = make(chan struct{})
		g.gates[key] = ch
	}
	return ch
}

func (g *gatedFetch) release(key string) {
	close(g.gate(key))
}

func (g *gatedFetch) fetch(_ context.Context, key string) (string, error) {
	g.calls.Add(1)
	<-g.gate(key)
	return "value-" + key, nil
}

func awaitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestTrackFetchesOnce(t *testing.T) {
	var calls atomic.Int32
	b := New("topic", func(_ context.Context, id string) (string, error) {
		calls.Add(1)
		return "topic " + id, nil
	})

	assert.False(t, b.Snapshot().Ready)

	b.Track("t1")
	st := b.Await(awaitCtx(t))
	require.True(t, st.Ready)
	assert.False(t, st.Pending)
	assert.Equal(t, "topic t1", st.Value)
	assert.Equal(t, uint64(1), st.Revision)

	b.Track("t1")
	b.Await(awaitCtx(t))
	assert.Equal(t, int32(1), calls.Load(), "same key must not refetch")

	b.Track("t2")
	st = b.Await(awaitCtx(t))
	assert.Equal(t, "topic t2", st.Value)
	assert.Equal(t, int32(2), calls.Load())
}

func TestStaleResultSuppressed(t *testing.T) {
	for _, order := range [][]string{{"k1", "k2"}, {"k2", "k1"}} {
		t.Run(order[0]+"-first", func(t *testing.T) {
			g := newGatedFetch()
			b := New("stale", g.fetch)

			b.Track("k1")
			b.Track("k2")
			assert.True(t, b.Snapshot().Pending)

			g.release(order[0])
			g.release(order[1])

			b.Await(awaitCtx(t))
			b.Close()

			st := b.Snapshot()
			assert.Equal(t, "value-k2", st.Value)
			assert.Equal(t, "k2", st.Key)
			assert.Equal(t, uint64(1), st.Revision, "only one result may commit")
		})
	}
}

func TestSupersededFetchIsCancelled(t *testing.T) {
	cancelled := make(chan struct{})
	b := New("cancel", func(ctx context.Context, key string) (string, error) {
		if key == "slow" {
			<-ctx.Done()
			close(cancelled)
			return "", ctx.Err()
		}
		return key, nil
	})

	b.Track("slow")
	b.Track("fast")

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded fetch was not cancelled")
	}

	st := b.Await(awaitCtx(t))
	assert.Equal(t, "fast", st.Value)
	assert.NoError(t, st.Err)
}

func TestRefetchKeepsLastValue(t *testing.T) {
	g := newGatedFetch()
	b := New("swr", func(ctx context.Context, key string) (string, error) {
		n := g.calls.Load()
		if n == 0 {
			g.calls.Add(1)
			return "first", nil
		}
		return g.fetch(ctx, key)
	})

	b.Track("t1")
	require.Equal(t, "first", b.Await(awaitCtx(t)).Value)

	b.Refetch()
	st := b.Snapshot()
	assert.True(t, st.Pending)
	assert.True(t, st.Ready)
	assert.False(t, st.Loading())
	assert.Equal(t, "first", st.Value)

	g.release("t1")
	st = b.Await(awaitCtx(t))
	assert.False(t, st.Pending)
	assert.Equal(t, "value-t1", st.Value)
	assert.Equal(t, uint64(2), st.Revision)
}

func TestRefetchBeforeTrackIsNoop(t *testing.T) {
	var calls atomic.Int32
	b := New("idle", func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", nil
	})

	b.Refetch()
	assert.False(t, b.Snapshot().Pending)
	assert.Equal(t, int32(0), calls.Load())
}

func TestShortCircuit(t *testing.T) {
	var calls atomic.Int32
	b := New("me", func(context.Context, string) (*string, error) {
		calls.Add(1)
		name := "alice"
		return &name, nil
	}, WithShortCircuit[string, *string](func(token string) bool { return token == "" }))

	b.Track("")
	st := b.Snapshot()
	assert.True(t, st.Ready)
	assert.False(t, st.Pending)
	assert.Nil(t, st.Value)
	assert.Equal(t, int32(0), calls.Load())

	b.Refetch()
	assert.Equal(t, int32(0), calls.Load(), "refetch of a short-circuited key must not fetch")

	b.Track("abc")
	st = b.Await(awaitCtx(t))
	require.NotNil(t, st.Value)
	assert.Equal(t, "alice", *st.Value)
	assert.Equal(t, int32(1), calls.Load())
}

func TestErrorResult(t *testing.T) {
	boom := errors.New("boom")
	b := New("err", func(context.Context, string) (string, error) {
		return "ignored", boom
	})

	b.Track("k")
	st := b.Await(awaitCtx(t))
	assert.True(t, st.Ready)
	assert.ErrorIs(t, st.Err, boom)
	assert.Empty(t, st.Value)
}

func TestPanicBecomesError(t *testing.T) {
	b := New("panicky", func(context.Context, string) (string, error) {
		panic("kaboom")
	})

	b.Track("k")
	st := b.Await(awaitCtx(t))
	require.Error(t, st.Err)
	assert.Contains(t, st.Err.Error(), "kaboom")
}

func TestAwaitHonoursContext(t *testing.T) {
	g := newGatedFetch()
	b := New("slow", g.fetch)
	b.Track("k")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	st := b.Await(ctx)
	assert.True(t, st.Loading())

	g.release("k")
	b.Close()
}

func TestCloseDiscardsInFlight(t *testing.T) {
	g := newGatedFetch()
	b := New("closing", g.fetch)
	b.Track("k")

	go g.release("k")
	b.Close()

	st := b.Snapshot()
	assert.False(t, st.Ready)
	assert.False(t, st.Pending)

	b.Track("other")
	assert.False(t, b.Snapshot().Pending, "closed binding must ignore Track")
}

func TestStateForOtherKeyIsLoading(t *testing.T) {
	g := newGatedFetch()
	b := New("switch", g.fetch)

	b.Track("a")
	g.release("a")
	require.Equal(t, "value-a", b.Await(awaitCtx(t)).Value)

	b.Track("b")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	st := b.Await(ctx)
	require.Equal(t, "a", st.Key, "the committed result still belongs to a")

	forB := st.For("b")
	assert.True(t, forB.Loading())
	assert.Equal(t, "b", forB.Key)
	assert.Empty(t, forB.Value)
	assert.Equal(t, st, st.For("a"))

	g.release("b")
	b.Close()
}

func TestOnCommitSeesEveryCommittedResult(t *testing.T) {
	g := newGatedFetch()
	var mu sync.Mutex
	var seen []string
	b := New("hooked", g.fetch,
		WithShortCircuit[string, string](func(key string) bool { return key == "" }),
		WithOnCommit(func(st State[string, string]) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, st.Key+"="+st.Value)
		}),
	)

	b.Track("")
	b.Track("old")
	b.Track("new")
	g.release("old")
	g.release("new")
	b.Await(awaitCtx(t))
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"=", "new=value-new"}, seen, "superseded results are not reported")
}

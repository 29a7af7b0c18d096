package action

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefetcher struct {
	n atomic.Int32
}

func (c *countingRefetcher) Refetch() {
	c.n.Add(1)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDispatchIgnoredWhilePending(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	d := New("vote", func(_ context.Context, option string) (struct{}, error) {
		calls.Add(1)
		<-release
		return struct{}{}, nil
	})

	first, ok := d.Dispatch(context.Background(), "opt1")
	require.True(t, ok)
	assert.True(t, d.Pending())

	for i := 0; i < 5; i++ {
		again, ok := d.Dispatch(context.Background(), "opt1")
		assert.False(t, ok)
		assert.Same(t, first, again, "repeated dispatch must return the in-flight call")
	}

	close(release)
	res, err := first.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.NoError(t, res.Err)
	assert.False(t, d.Pending())
	assert.Equal(t, int32(1), calls.Load())

	_, ok = d.Dispatch(context.Background(), "opt2")
	assert.True(t, ok, "dispatch must work again once settled")
}

func TestSuccessRunsHooksAndInvalidations(t *testing.T) {
	var order []string
	topic := &countingRefetcher{}
	myVote := &countingRefetcher{}

	d := New("login", func(_ context.Context, user string) (string, error) {
		return "token-" + user, nil
	}).OnSuccess(func(in, out string) {
		order = append(order, "hook:"+out)
	}).Invalidates(func(string) []Refetcher {
		order = append(order, "invalidate")
		return []Refetcher{topic, myVote}
	})

	call, ok := d.Dispatch(context.Background(), "alice")
	require.True(t, ok)
	res, err := call.Wait(waitCtx(t))
	require.NoError(t, err)

	assert.Equal(t, "token-alice", res.Value)
	assert.Equal(t, []string{"hook:token-alice", "invalidate"}, order)
	assert.Equal(t, int32(1), topic.n.Load())
	assert.Equal(t, int32(1), myVote.n.Load())

	last, ok := d.LastResult()
	require.True(t, ok)
	assert.Equal(t, "token-alice", last.Value)
}

func TestFailureSkipsEffects(t *testing.T) {
	boom := errors.New("login failed")
	var hooks atomic.Int32
	r := &countingRefetcher{}

	d := New("login", func(context.Context, string) (string, error) {
		return "", boom
	}).OnSuccess(func(string, string) {
		hooks.Add(1)
	}).Invalidates(func(string) []Refetcher {
		return []Refetcher{r}
	})

	_, ok := d.LastResult()
	assert.False(t, ok)

	call, _ := d.Dispatch(context.Background(), "alice")
	res, err := call.Wait(waitCtx(t))
	require.NoError(t, err)

	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, int32(0), hooks.Load())
	assert.Equal(t, int32(0), r.n.Load())

	last, ok := d.LastResult()
	require.True(t, ok)
	assert.ErrorIs(t, last.Err, boom)
}

func TestWriteSurvivesCancelledRequest(t *testing.T) {
	release := make(chan struct{})
	d := New("comment", func(ctx context.Context, _ string) (struct{}, error) {
		<-release
		return struct{}{}, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	call, _ := d.Dispatch(ctx, "hi")
	cancel()

	short, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer stop()
	_, err := call.Wait(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	res, err := call.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.NoError(t, res.Err, "write must not see the request's cancellation")
}

func TestPanicSettlesWithError(t *testing.T) {
	d := New("broken", func(context.Context, int) (int, error) {
		panic("bad")
	})

	call, _ := d.Dispatch(context.Background(), 1)
	res, err := call.Wait(waitCtx(t))
	require.NoError(t, err)
	require.Error(t, res.Err)
	assert.False(t, d.Pending())
}

func TestTakeDeliversUnseenSettlementOnce(t *testing.T) {
	boom := errors.New("login failed: 401 Unauthorized")
	release := make(chan struct{})
	d := New("login", func(_ context.Context, user string) (string, error) {
		<-release
		if user == "mallory" {
			return "", boom
		}
		return "token-" + user, nil
	})

	call, _ := d.Dispatch(context.Background(), "mallory")
	short, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer stop()
	_, err := call.Wait(short)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := d.Take()
	assert.False(t, ok, "nothing has settled yet")

	close(release)
	require.Eventually(t, func() bool { return !d.Pending() }, 2*time.Second, time.Millisecond)

	res, ok := d.Take()
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, boom)
	_, ok = d.Take()
	assert.False(t, ok, "a settlement is delivered once")

	call, _ = d.Dispatch(context.Background(), "alice")
	res, err = call.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "token-alice", res.Value)
	_, ok = d.Take()
	assert.False(t, ok, "a waiter already received it")
}

func TestTakeMatchingFiltersByInput(t *testing.T) {
	d := New("vote", func(_ context.Context, topic string) (struct{}, error) {
		return struct{}{}, errors.New("create vote failed")
	})
	call, _ := d.Dispatch(context.Background(), "t1")
	<-call.Done()

	_, ok := d.TakeMatching(func(topic string) bool { return topic == "t2" })
	assert.False(t, ok)

	res, ok := d.TakeMatching(func(topic string) bool { return topic == "t1" })
	require.True(t, ok)
	assert.Error(t, res.Err)
}

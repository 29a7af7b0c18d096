package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csie-vote/voting-web/internal/api"
)

func TestRegistryGetAndSweep(t *testing.T) {
	backend := api.New("http://127.0.0.1:1", time.Second)
	created := 0
	r := NewRegistry(func(id string) *Instance {
		created++
		return NewInstance(id, backend, Options{})
	}, time.Hour)

	start := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	now := start
	r.now = func() time.Time { return now }

	a := r.Get("a")
	assert.Same(t, a, r.Get("a"))
	require.Equal(t, 1, created)

	now = start.Add(50 * time.Minute)
	r.Get("b")
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, 1, r.Sweep(start.Add(90*time.Minute)))
	assert.Equal(t, 1, r.Len())

	assert.NotSame(t, a, r.Get("a"), "an evicted session starts anonymous again")
	assert.Equal(t, 3, created)

	r.Close()
	assert.Equal(t, 0, r.Len())
}

func TestDrafts(t *testing.T) {
	d := NewDrafts()
	assert.Empty(t, d.Get("t1"))

	d.Set("t1", "hello")
	d.Set("t2", "other")
	assert.Equal(t, "hello", d.Get("t1"))

	d.Clear("t1")
	assert.Empty(t, d.Get("t1"))
	assert.Equal(t, "other", d.Get("t2"))
}

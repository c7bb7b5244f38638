package xcascade

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler() Handler {
	return HandlerFunc(func(context.Context, any) error { return nil })
}

func TestRegistry_UnknownTopicIsEmpty(t *testing.T) {
	r := NewRegistry()
	hs := r.HandlersFor("missing")
	assert.NotNil(t, hs)
	assert.Empty(t, hs)
}

func TestRegistry_OrderAndIDs(t *testing.T) {
	r := NewRegistry()
	a := r.add("t", nopHandler())
	b := r.add("t", nopHandler())
	c := r.add("other", nopHandler())

	assert.Less(t, a.ID(), b.ID())
	assert.Less(t, b.ID(), c.ID())

	subs := r.subscriptions("t")
	require.Len(t, subs, 2)
	assert.Equal(t, a.ID(), subs[0].ID())
	assert.Equal(t, b.ID(), subs[1].ID())

	assert.ElementsMatch(t, []string{"t", "other"}, r.Topics())
	assert.Equal(t, 3, r.Count())
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	a := r.add("t", nopHandler())
	b := r.add("t", nopHandler())

	snapshot := r.subscriptions("t")

	assert.True(t, r.Remove(a.ID()))
	assert.False(t, r.Remove(a.ID()))
	assert.False(t, a.active.Load())

	subs := r.subscriptions("t")
	require.Len(t, subs, 1)
	assert.Equal(t, b.ID(), subs[0].ID())
	require.Len(t, snapshot, 2, "snapshots are unaffected by removal")

	require.NoError(t, b.Close())
	assert.Empty(t, r.Topics())
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_ConcurrentAdd(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.add("t", nopHandler())
		}()
	}
	wg.Wait()

	subs := r.subscriptions("t")
	require.Len(t, subs, 50)
	for i := 1; i < len(subs); i++ {
		assert.Less(t, subs[i-1].ID(), subs[i].ID(), "list order follows registration IDs")
	}
}

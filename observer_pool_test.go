package xcascade

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverPool_OrderPerCascade(t *testing.T) {
	pool := NewObserverPool(context.Background(), 4, 64)

	var mu sync.Mutex
	got := make(map[string][]uint64)
	obs := ObserverFunc(func(e Event) {
		if e.Seq == 1 {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		got[e.CascadeID] = append(got[e.CascadeID], e.Seq)
		mu.Unlock()
	})

	cascades := []string{"a", "b", "c"}
	for seq := uint64(1); seq <= 5; seq++ {
		for _, id := range cascades {
			pool.Notify(Event{CascadeID: id, Seq: seq}, []Observer{obs})
		}
	}
	require.NoError(t, pool.Close(time.Second))

	for _, id := range cascades {
		assert.Equal(t, []uint64{1, 2, 3, 4, 5}, got[id], "cascade %s", id)
	}
	stats := pool.Stats()
	assert.Equal(t, uint64(15), stats.Processed)
	assert.Equal(t, 4, stats.Workers)
	assert.Equal(t, 64, stats.BufferSize)
}

func TestObserverPool_PanicsCounted(t *testing.T) {
	pool := NewObserverPool(context.Background(), 1, 8)
	var calls int
	observers := []Observer{
		ObserverFunc(func(Event) { panic("boom") }),
		ObserverFunc(func(Event) { calls++ }),
	}

	pool.Notify(Event{CascadeID: "a", Seq: 1}, observers)
	pool.Notify(Event{CascadeID: "a", Seq: 2}, observers)
	require.NoError(t, pool.Close(time.Second))

	stats := pool.Stats()
	assert.Equal(t, uint64(2), stats.Panics)
	assert.Equal(t, uint64(2), stats.Processed)
	assert.Equal(t, 2, calls)
}

func TestObserverPool_DropsWhenFullAndIgnoresAfterClose(t *testing.T) {
	pool := NewObserverPool(context.Background(), 1, 1)
	release := make(chan struct{})
	obs := ObserverFunc(func(Event) { <-release })

	// First event occupies the worker, second fills the queue.
	pool.Notify(Event{Seq: 1}, []Observer{obs})
	require.Eventually(t, func() bool { return pool.Stats().ActiveEvents == 0 }, time.Second, time.Millisecond)
	pool.Notify(Event{Seq: 2}, []Observer{obs})
	pool.Notify(Event{Seq: 3}, []Observer{obs})
	assert.Equal(t, uint64(1), pool.Stats().Dropped)

	close(release)
	require.NoError(t, pool.Close(time.Second))
	pool.Notify(Event{Seq: 4}, []Observer{obs})
	assert.Equal(t, uint64(2), pool.Stats().Processed)
}

func TestBus_ObserverPanicsInPoolMetrics(t *testing.T) {
	bus := newTestBus(t, func(b *BusBuilder) {
		b.WithObserverPool(2, 16).WithObserver(ObserverFunc(func(Event) { panic("observer") }))
	})
	require.NoError(t, bus.Publish(context.Background(), "t", nil))
	require.NoError(t, bus.Close(context.Background()))

	// recorded + dispatched
	assert.Equal(t, uint64(2), bus.GetMetrics().ObserverPanics)
}

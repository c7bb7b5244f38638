package xcascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendN(t *testing.T, l Log, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, l.Append(Envelope{Seq: uint64(i), Topic: "t"}))
	}
}

func TestMemoryLog_Unbounded(t *testing.T) {
	l := NewMemoryLog(0)
	appendN(t, l, 5)

	assert.Equal(t, 5, l.Len())
	assert.Equal(t, uint64(5), l.Total())
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, seqs(l.Entries()))
	assert.Equal(t, []uint64{4, 5}, seqs(l.Tail(2)))
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, seqs(l.Tail(50)))
	assert.Empty(t, l.Tail(0))
}

func TestMemoryLog_RetainKeepsSequence(t *testing.T) {
	l := NewMemoryLog(3)
	appendN(t, l, 10)

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, uint64(10), l.Total())
	assert.Equal(t, []uint64{8, 9, 10}, seqs(l.Entries()))
}

func TestMemoryLog_EntriesAreSnapshots(t *testing.T) {
	l := NewMemoryLog(0)
	appendN(t, l, 2)

	entries := l.Entries()
	entries[0].Topic = "mutated"

	assert.Equal(t, "t", l.Entries()[0].Topic)
}

func TestBus_RetainedLogContinuesSequence(t *testing.T) {
	bus := newTestBus(t, func(b *BusBuilder) { b.WithConfig(Config{Retain: 2}) })
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(t.Context(), "t", i))
	}

	assert.Equal(t, []uint64{4, 5}, seqs(bus.Entries()))
	assert.Equal(t, []uint64{5}, seqs(bus.Tail(1)))
	assert.Equal(t, uint64(5), bus.Log().Total())
}

func TestNewLog(t *testing.T) {
	l, err := NewLog(MemoryLogName, map[string]any{"retain": 4})
	require.NoError(t, err)
	appendN(t, l, 6)
	assert.Equal(t, 4, l.Len())

	_, err = NewLog("kafka", nil)
	var unknown ErrUnknownLog
	assert.ErrorAs(t, err, &unknown)

	require.NoError(t, RegisterLog("tiny", func(map[string]any) (Log, error) { return NewMemoryLog(1), nil }))
	bus := newTestBus(t, func(b *BusBuilder) { b.WithLog("tiny", nil) })
	require.NoError(t, bus.Publish(t.Context(), "a", nil))
	require.NoError(t, bus.Publish(t.Context(), "b", nil))
	assert.Equal(t, []string{"b"}, topics(bus.Entries()))

	assert.Error(t, RegisterLog("", nil))
}

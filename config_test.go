package xcascade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromMap(t *testing.T) {
	cfg := ConfigFromMap(map[string]any{
		"retain":           "50",
		"latency":          "250ms",
		"jitter":           float64(time.Millisecond),
		"max_depth":        8,
		"handler_timeout":  2 * time.Second,
		"serialize":        "true",
		"observer_workers": int64(4),
		"observer_buffer":  float64(256),
	})

	assert.Equal(t, Config{
		Log:             MemoryLogName,
		Retain:          50,
		Latency:         250 * time.Millisecond,
		Jitter:          time.Millisecond,
		MaxDepth:        8,
		HandlerTimeout:  2 * time.Second,
		Serialize:       true,
		ObserverWorkers: 4,
		ObserverBuffer:  256,
	}, cfg)
}

func TestConfigFromMap_DefaultsAndGarbage(t *testing.T) {
	cfg := ConfigFromMap(map[string]any{
		"retain":    -3,
		"latency":   "soon",
		"serialize": "maybe",
		"max_depth": []int{1},
	})
	assert.Equal(t, Config{Log: MemoryLogName}, cfg)
	assert.Equal(t, Config{Log: MemoryLogName}, ConfigFromMap(nil))
}

func TestConfig_Delay(t *testing.T) {
	assert.IsType(t, noDelay{}, Config{}.Delay())
	assert.IsType(t, DelayFunc(nil), Config{Latency: time.Millisecond}.Delay())
	assert.IsType(t, DelayFunc(nil), Config{Jitter: time.Millisecond}.Delay())
}

func TestBusBuilder_WithConfig(t *testing.T) {
	bus := newTestBus(t, func(b *BusBuilder) {
		b.WithConfig(Config{MaxDepth: 1, Serialize: true, HandlerTimeout: time.Second})
	})

	assert.Equal(t, 1, bus.maxDepth)
	assert.NotNil(t, bus.serial)
	require.Len(t, bus.middlewares, 1, "timeout middleware")

	_, err := bus.SubscribeFunc("a", func(ctx context.Context, _ any) error { return bus.Publish(ctx, "b", nil) })
	require.NoError(t, err)
	_, err = bus.SubscribeFunc("b", func(ctx context.Context, _ any) error { return bus.Publish(ctx, "c", nil) })
	require.NoError(t, err)

	assert.ErrorIs(t, bus.Publish(context.Background(), "a", nil), ErrMaxDepthExceeded)
}

func TestBusBuilder_Errors(t *testing.T) {
	_, err := NewBusBuilder().WithLog("", nil).Build()
	assert.ErrorIs(t, err, ErrNoLogConfigured)

	_, err = NewBusBuilder().WithCodec("xml").Build()
	assert.Error(t, err)

	l := NewMemoryLog(0)
	bus, err := NewBusBuilder().WithLogInstance(l).Build()
	require.NoError(t, err)
	assert.Same(t, l, bus.Log())
}

package xcascade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderPlaced struct {
	ID    int    `json:"id"`
	Drink string `json:"drink"`
}

func TestDecode(t *testing.T) {
	ctx := context.Background()

	got, err := Decode[orderPlaced](ctx, orderPlaced{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, orderPlaced{ID: 1}, got)

	got, err = Decode[orderPlaced](ctx, map[string]any{"id": 2, "drink": "latte"})
	require.NoError(t, err)
	assert.Equal(t, orderPlaced{ID: 2, Drink: "latte"}, got)

	got, err = Decode[orderPlaced](ctx, []byte(`{"id":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3, got.ID)

	_, err = Decode[orderPlaced](ctx, "not an order")
	assert.Error(t, err)
}

type upperCodec struct{ JSONCodec }

func (upperCodec) Name() string { return "upper" }

func TestDecode_UsesBusCodec(t *testing.T) {
	require.NoError(t, RegisterCodec("upper", func() Codec { return upperCodec{} }))
	bus := newTestBus(t, func(b *BusBuilder) { b.WithCodec("upper") })

	var name string
	var decoded orderPlaced
	_, err := bus.SubscribeFunc("order", func(ctx context.Context, p any) error {
		c, ok := CodecFromContext(ctx)
		require.True(t, ok)
		name = c.Name()
		return nil
	})
	require.NoError(t, err)
	_, err = bus.SubscribeFunc("order", func(ctx context.Context, p any) error {
		var err error
		decoded, err = Decode[orderPlaced](ctx, p)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "order", map[string]any{"id": 9}))
	assert.Equal(t, "upper", name)
	assert.Equal(t, 9, decoded.ID)
	assert.Equal(t, "upper", bus.Codec().Name())
}

func TestContextInjection(t *testing.T) {
	bus := newTestBus(t, nil)

	_, err := bus.SubscribeFunc("t", func(ctx context.Context, _ any) error {
		_, ok := LoggerFromContext(ctx)
		assert.True(t, ok)
		_, ok = ClockFromContext(ctx)
		assert.True(t, ok)
		env, ok := EnvelopeFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, "t", env.Topic)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), "t", nil))

	_, ok := EnvelopeFromContext(context.Background())
	assert.False(t, ok)
}

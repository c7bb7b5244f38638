package xcascade

import (
	"context"
	"math/rand"
	"time"
)

// DelayFunc is an Adapter that lets a plain function satisfy Delay.
type DelayFunc func(ctx context.Context, env Envelope) error

func (f DelayFunc) Wait(ctx context.Context, env Envelope) error { return f(ctx, env) }

type noDelay struct{}

func (noDelay) Wait(ctx context.Context, _ Envelope) error { return ctx.Err() }

// NoDelay invokes handlers back to back. It is the default.
func NoDelay() Delay { return noDelay{} }

// FixedDelay pauses d before every handler call.
func FixedDelay(d time.Duration) Delay {
	if d <= 0 {
		return NoDelay()
	}
	return DelayFunc(func(ctx context.Context, _ Envelope) error {
		return sleepCtx(ctx, d)
	})
}

// JitterDelay pauses base plus up to [0, jitter] random extra time.
func JitterDelay(base, jitter time.Duration) Delay {
	if jitter <= 0 {
		return FixedDelay(base)
	}
	return DelayFunc(func(ctx context.Context, _ Envelope) error {
		return sleepCtx(ctx, base+time.Duration(rand.Int63n(int64(jitter))))
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

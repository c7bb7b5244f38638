package xcascade

import (
	"context"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// ctxKey is the base for all context keys in xcascade (prevents collisions).
type ctxKey string

const (
	codecCtxKey  ctxKey = "xcascade:codec"
	loggerCtxKey ctxKey = "xcascade:logger"
	clockCtxKey  ctxKey = "xcascade:clock"
	frameCtxKey  ctxKey = "xcascade:frame"
)

// frame marks the envelope a handler is currently processing on a given bus.
// A publish whose ctx carries a frame of the same bus is nested under it.
type frame struct {
	bus *Bus
	env Envelope
}

func injectFrame(ctx context.Context, b *Bus, env Envelope) context.Context {
	return context.WithValue(ctx, frameCtxKey, frame{bus: b, env: env})
}

func frameFromContext(ctx context.Context, b *Bus) (frame, bool) {
	f, ok := ctx.Value(frameCtxKey).(frame)
	if !ok || f.bus != b {
		return frame{}, false
	}
	return f, true
}

// EnvelopeFromContext returns the envelope being dispatched to the current handler.
func EnvelopeFromContext(ctx context.Context) (Envelope, bool) {
	f, ok := ctx.Value(frameCtxKey).(frame)
	if !ok {
		return Envelope{}, false
	}
	return f.env, true
}

// injectCodec attaches the active Codec into context for downstream handlers.
func injectCodec(ctx context.Context, c Codec) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, codecCtxKey, c)
}

// CodecFromContext retrieves a Codec previously injected into the context.
func CodecFromContext(ctx context.Context) (Codec, bool) {
	if v := ctx.Value(codecCtxKey); v != nil {
		if c, ok := v.(Codec); ok && c != nil {
			return c, true
		}
	}
	return nil, false
}

func injectLogger(ctx context.Context, l *xlog.Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerCtxKey, l)
}

func LoggerFromContext(ctx context.Context) (*xlog.Logger, bool) {
	if v := ctx.Value(loggerCtxKey); v != nil {
		if l, ok := v.(*xlog.Logger); ok && l != nil {
			return l, true
		}
	}
	return nil, false
}

func injectClock(ctx context.Context, c xclock.Clock) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, clockCtxKey, c)
}

func ClockFromContext(ctx context.Context) (xclock.Clock, bool) {
	if v := ctx.Value(clockCtxKey); v != nil {
		if c, ok := v.(xclock.Clock); ok && c != nil {
			return c, true
		}
	}
	return nil, false
}

// InjectAll is a convenience helper to inject all standard dependencies.
func InjectAll(ctx context.Context, codec Codec, logger *xlog.Logger, clock xclock.Clock) context.Context {
	ctx = injectCodec(ctx, codec)
	ctx = injectLogger(ctx, logger)
	ctx = injectClock(ctx, clock)
	return ctx
}

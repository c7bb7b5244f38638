package xcascade

import (
	"context"
)

// Handler processes a single published payload. Returning an error aborts the
// remaining handlers of the current dispatch round and surfaces to the publisher.
type Handler interface {
	Handle(ctx context.Context, payload any) error
}

// HandlerFunc is an Adapter that lets a plain function satisfy Handler.
type HandlerFunc func(ctx context.Context, payload any) error

func (f HandlerFunc) Handle(ctx context.Context, payload any) error { return f(ctx, payload) }

// Middleware composes processing concerns around a Handler.
type Middleware func(next Handler) Handler

// Subscription is the handle returned by Subscribe. Close removes the handler.
type Subscription interface {
	ID() uint64
	Topic() string
	Close() error
}

// Log is the Strategy for recording dispatched envelopes.
type Log interface {
	// Append records env. It must return before dispatch of env begins.
	Append(env Envelope) error
	// Entries returns a snapshot of the retained envelopes in sequence order.
	Entries() []Envelope
	// Tail returns at most n of the most recent envelopes.
	Tail(n int) []Envelope
	// Len is the number of retained envelopes.
	Len() int
	// Total is the number of envelopes ever appended.
	Total() uint64
}

// Delay is the Strategy for the simulated latency before each handler call.
// Implementations must return early with ctx.Err() when ctx is done.
type Delay interface {
	Wait(ctx context.Context, env Envelope) error
}

// Observer receives bus lifecycle events. Implementations should be non-blocking.
type Observer interface {
	OnEvent(e Event)
}

// HealthChecker provides health status for production monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// API represents the complete xcascade surface for extensibility.
type API interface {
	Publish(ctx context.Context, topic string, payload any) error
	PublishBatch(ctx context.Context, events ...PublishEvent) error
	Subscribe(topic string, h Handler) (Subscription, error)
	SubscribeFunc(topic string, fn HandlerFunc) (Subscription, error)
	Unsubscribe(sub Subscription) error
	Entries() []Envelope
	Tail(n int) []Envelope
	Close(ctx context.Context) error
	GetMetrics() Metrics
	Health(ctx context.Context) HealthStatus
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}

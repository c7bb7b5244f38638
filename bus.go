package xcascade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

var _ API = (*Bus)(nil)
var _ HealthChecker = (*Bus)(nil)

// Bus is an in-process publish/subscribe dispatcher with depth-first cascades.
//
// Publish records an Envelope in the Log, then invokes the topic's handlers one
// at a time in registration order. A handler that publishes (with the ctx it
// was given) runs the nested cascade to completion before the next sibling
// handler starts, so the Log reads as a causal, depth-first trace.
type Bus struct {
	log          Log
	registry     *Registry
	codec        Codec
	clock        xclock.Clock
	logger       *xlog.Logger
	delay        Delay
	middlewares  []Middleware
	maxDepth     int
	serial       chan struct{}
	observerPool *ObserverPool
	observersMu  sync.RWMutex
	observers    []Observer
	metrics      *busMetrics
	closed       atomic.Bool
	closeOnce    sync.Once

	// recordMu covers sequence allocation and Log.Append only, never dispatch.
	recordMu sync.Mutex
	seq      uint64
}

// busMetrics uses lock-free atomics for telemetry.
type busMetrics struct {
	published    atomic.Uint64
	rejected     atomic.Uint64
	invoked      atomic.Uint64
	failures     atomic.Uint64
	panics       atomic.Uint64
	obsPanics    atomic.Uint64
	maxDepth     atomic.Int64
	processingNs atomic.Int64
}

// Codec returns the configured codec (Strategy).
func (b *Bus) Codec() Codec { return b.codec }

// Log returns the delivery log.
func (b *Bus) Log() Log { return b.log }

// Publish records payload under topic and dispatches it to the topic's
// handlers, returning once the whole cascade has settled or a handler failed.
// Handlers must pass the ctx they receive to nested Publish calls.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	if b.closed.Load() {
		b.metrics.rejected.Add(1)
		return ErrBusClosed
	}
	if topic == "" {
		b.metrics.rejected.Add(1)
		return ErrInvalidTopic
	}
	if err := ctx.Err(); err != nil {
		b.metrics.rejected.Add(1)
		return err
	}

	parent, nested := frameFromContext(ctx, b)
	depth := 0
	if nested {
		depth = parent.env.Depth + 1
	}
	if b.maxDepth > 0 && depth > b.maxDepth {
		b.metrics.rejected.Add(1)
		err := fmt.Errorf("%w: depth %d publishing %q", ErrMaxDepthExceeded, depth, topic)
		b.notify(Event{
			Type:      Error,
			Topic:     topic,
			CascadeID: parent.env.CascadeID,
			ParentSeq: parent.env.Seq,
			Depth:     depth,
			Err:       err,
		})
		return err
	}

	// Nested publishes already run inside the slot held by their root.
	if b.serial != nil && !nested {
		select {
		case b.serial <- struct{}{}:
			defer func() { <-b.serial }()
		case <-ctx.Done():
			b.metrics.rejected.Add(1)
			return ctx.Err()
		}
	}

	env, err := b.record(topic, payload, parent, nested)
	if err != nil {
		b.metrics.rejected.Add(1)
		b.notify(Event{
			Type:      Error,
			Topic:     topic,
			CascadeID: parent.env.CascadeID,
			ParentSeq: parent.env.Seq,
			Depth:     depth,
			Err:       err,
		})
		b.logger.Error().Err(err).Msg("xcascade: log append failed")
		return err
	}
	b.trackDepth(depth)
	b.notify(Event{
		Type:      Recorded,
		Topic:     topic,
		CascadeID: env.CascadeID,
		Seq:       env.Seq,
		ParentSeq: env.ParentSeq,
		Depth:     env.Depth,
		Envelope:  env,
	})

	return b.dispatch(ctx, env)
}

// record allocates the next sequence number and appends the envelope. The
// counter only advances when the append succeeds, so the log has no gaps.
func (b *Bus) record(topic string, payload any, parent frame, nested bool) (Envelope, error) {
	id := uuid.NewString()
	env := Envelope{
		ID:        id,
		Topic:     topic,
		Payload:   payload,
		CascadeID: id,
	}
	if nested {
		env.ParentSeq = parent.env.Seq
		env.CascadeID = parent.env.CascadeID
		env.Depth = parent.env.Depth + 1
	}

	b.recordMu.Lock()
	defer b.recordMu.Unlock()

	env.Seq = b.seq + 1
	env.CreatedAt = b.clock.Now()
	if err := b.log.Append(env); err != nil {
		return Envelope{}, err
	}
	b.seq = env.Seq
	b.metrics.published.Add(1)
	return env, nil
}

// dispatch runs one dispatch round: every subscription of env.Topic, in
// registration order, each settling before the next starts.
func (b *Bus) dispatch(ctx context.Context, env Envelope) error {
	start := b.clock.Now()
	subs := b.registry.subscriptions(env.Topic)

	hctx := InjectAll(ctx, b.codec, b.logger, b.clock)
	hctx = injectFrame(hctx, b, env)

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return b.interrupted(env, err)
		}
		if err := b.delay.Wait(ctx, env); err != nil {
			return b.interrupted(env, err)
		}
		// Removed while an earlier sibling was running.
		if !sub.active.Load() {
			continue
		}

		b.notify(Event{
			Type:           HandlerStart,
			Topic:          env.Topic,
			CascadeID:      env.CascadeID,
			Seq:            env.Seq,
			ParentSeq:      env.ParentSeq,
			Depth:          env.Depth,
			SubscriptionID: sub.id,
			Envelope:       env,
		})

		hstart := b.clock.Now()
		b.metrics.invoked.Add(1)
		err := sub.invoke.Handle(hctx, env.Payload)
		duration := b.clock.Since(hstart)
		b.recordProcessingTime(duration.Nanoseconds())

		if err != nil {
			b.metrics.failures.Add(1)
			if errors.Is(err, ErrHandlerPanic) {
				b.metrics.panics.Add(1)
			}
			herr := &HandlerError{Topic: env.Topic, Seq: env.Seq, SubscriptionID: sub.id, Err: err}
			b.notify(Event{
				Type:           HandlerDone,
				Topic:          env.Topic,
				CascadeID:      env.CascadeID,
				Seq:            env.Seq,
				ParentSeq:      env.ParentSeq,
				Depth:          env.Depth,
				SubscriptionID: sub.id,
				Envelope:       env,
				Duration:       duration,
				Err:            herr,
			})
			return herr
		}

		b.notify(Event{
			Type:           HandlerDone,
			Topic:          env.Topic,
			CascadeID:      env.CascadeID,
			Seq:            env.Seq,
			ParentSeq:      env.ParentSeq,
			Depth:          env.Depth,
			SubscriptionID: sub.id,
			Envelope:       env,
			Duration:       duration,
		})
	}

	b.notify(Event{
		Type:      Dispatched,
		Topic:     env.Topic,
		CascadeID: env.CascadeID,
		Seq:       env.Seq,
		ParentSeq: env.ParentSeq,
		Depth:     env.Depth,
		Envelope:  env,
		Duration:  b.clock.Since(start),
	})
	return nil
}

func (b *Bus) interrupted(env Envelope, cause error) error {
	err := fmt.Errorf("xcascade: dispatch of %q (seq %d) interrupted: %w", env.Topic, env.Seq, cause)
	b.notify(Event{
		Type:      Error,
		Topic:     env.Topic,
		CascadeID: env.CascadeID,
		Seq:       env.Seq,
		ParentSeq: env.ParentSeq,
		Depth:     env.Depth,
		Envelope:  env,
		Err:       err,
	})
	return err
}

// Subscribe appends h to the handlers of topic. Handlers are wrapped with panic
// recovery first, then the configured middlewares.
func (b *Bus) Subscribe(topic string, h Handler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}
	if topic == "" {
		return nil, ErrInvalidTopic
	}
	if h == nil {
		return nil, ErrNilHandler
	}
	return b.registry.add(topic, h, b.middlewares...), nil
}

// SubscribeFunc is Subscribe for plain functions.
func (b *Bus) SubscribeFunc(topic string, fn HandlerFunc) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(topic, fn)
}

// Unsubscribe removes a subscription created by this bus.
func (b *Bus) Unsubscribe(sub Subscription) error {
	s, ok := sub.(*subscription)
	if !ok || s == nil || s.reg != b.registry {
		return ErrSubscriptionNotFound
	}
	if !b.registry.Remove(s.id) {
		return ErrSubscriptionNotFound
	}
	return nil
}

// HandlersFor returns the handlers registered for topic in dispatch order.
func (b *Bus) HandlersFor(topic string) []Handler { return b.registry.HandlersFor(topic) }

// Topics returns every topic with at least one subscription.
func (b *Bus) Topics() []string { return b.registry.Topics() }

// Entries returns the retained log entries in sequence order.
func (b *Bus) Entries() []Envelope { return b.log.Entries() }

// Tail returns at most n of the most recent log entries.
func (b *Bus) Tail(n int) []Envelope { return b.log.Tail(n) }

// GetMetrics returns current bus metrics.
func (b *Bus) GetMetrics() Metrics {
	var dropped uint64
	obsPanics := b.metrics.obsPanics.Load()
	if b.observerPool != nil {
		stats := b.observerPool.Stats()
		dropped = stats.Dropped
		obsPanics += stats.Panics
	}
	return Metrics{
		Published:        b.metrics.published.Load(),
		Rejected:         b.metrics.rejected.Load(),
		HandlersInvoked:  b.metrics.invoked.Load(),
		HandlerFailures:  b.metrics.failures.Load(),
		HandlerPanics:    b.metrics.panics.Load(),
		Subscriptions:    b.registry.Count(),
		MaxDepth:         int(b.metrics.maxDepth.Load()),
		EventsDropped:    dropped,
		ObserverPanics:   obsPanics,
		AvgHandlerTimeMs: float64(b.metrics.processingNs.Load()) / 1e6,
	}
}

// Health reports bus health. Implements HealthChecker.
func (b *Bus) Health(_ context.Context) HealthStatus {
	if b.closed.Load() {
		return HealthStatus{
			Status:    "unhealthy",
			Timestamp: b.clock.Now(),
			Message:   "bus is closed",
		}
	}

	metrics := b.GetMetrics()
	status := "healthy"

	// Degraded if more than 5% of handler calls failed.
	if metrics.HandlerFailures > 0 && metrics.HandlersInvoked > 0 {
		failureRate := float64(metrics.HandlerFailures) / float64(metrics.HandlersInvoked)
		if failureRate > 0.05 {
			status = "degraded"
		}
	}

	return HealthStatus{
		Status:    status,
		Metrics:   metrics,
		Timestamp: b.clock.Now(),
	}
}

// Close stops accepting publishes and subscriptions and drains the observer
// pool. Cascades already running finish their current handler; nested
// publishes they attempt afterwards fail with ErrBusClosed. Idempotent.
func (b *Bus) Close(ctx context.Context) error {
	var closeErr error

	b.closeOnce.Do(func() {
		b.closed.Store(true)

		if b.observerPool != nil {
			timeout := 5 * time.Second
			if dl, ok := ctx.Deadline(); ok {
				timeout = time.Until(dl)
			}
			if err := b.observerPool.Close(timeout); err != nil {
				b.logger.Warn().Err(err).Msg("xcascade: observer pool shutdown timeout")
				closeErr = err
			}
		}
	})

	return closeErr
}

// AddObserver registers an observer (thread-safe).
func (b *Bus) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	b.observers = append(b.observers, obs)
	b.observersMu.Unlock()
}

// RemoveObserver removes an observer. Only comparable observers can be removed.
func (b *Bus) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	defer b.observersMu.Unlock()

	for i, o := range b.observers {
		if o == obs {
			next := make([]Observer, 0, len(b.observers)-1)
			next = append(next, b.observers[:i]...)
			b.observers = append(next, b.observers[i+1:]...)
			break
		}
	}
}

// notify delivers e through the observer pool when configured, otherwise
// synchronously on the dispatch path. Either way a cascade's events arrive in
// emission order; events of concurrent top-level cascades may interleave.
func (b *Bus) notify(e Event) {
	b.observersMu.RLock()
	if len(b.observers) == 0 {
		b.observersMu.RUnlock()
		return
	}
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.observersMu.RUnlock()

	if b.observerPool != nil {
		b.observerPool.Notify(e, observers)
		return
	}
	for _, o := range observers {
		b.notifyOne(o, e)
	}
}

func (b *Bus) notifyOne(o Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.obsPanics.Add(1)
			b.logger.Warn().Msg("xcascade: observer panic (recovered)")
		}
	}()
	o.OnEvent(e)
}

func (b *Bus) trackDepth(depth int) {
	d := int64(depth)
	for {
		cur := b.metrics.maxDepth.Load()
		if d <= cur || b.metrics.maxDepth.CompareAndSwap(cur, d) {
			return
		}
	}
}

// recordProcessingTime records handler time using exponential moving average.
func (b *Bus) recordProcessingTime(ns int64) {
	const alpha = 0.2 // 20% weight to new sample
	current := b.metrics.processingNs.Load()
	if current == 0 {
		b.metrics.processingNs.Store(ns)
		return
	}
	newAvg := int64(float64(ns)*alpha + float64(current)*(1-alpha))
	b.metrics.processingNs.Store(newAvg)
}

package xcascade

import (
	"sync"
	"sync/atomic"
)

// Registry maps topics to handlers in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	topics map[string][]*subscription
	byID   map[uint64]*subscription
	nextID atomic.Uint64
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string][]*subscription),
		byID:   make(map[uint64]*subscription),
	}
}

// add registers h at the end of the list for topic. The same handler may be
// registered more than once; each registration is invoked separately.
// The invoked chain is RecoveryMiddleware around h, wrapped by mws.
func (r *Registry) add(topic string, h Handler, mws ...Middleware) *subscription {
	sub := &subscription{
		topic:   topic,
		handler: h,
		invoke:  Chain(RecoveryMiddleware()(h), mws...),
		reg:     r,
	}
	sub.active.Store(true)

	r.mu.Lock()
	sub.id = r.nextID.Add(1)
	r.topics[topic] = append(r.topics[topic], sub)
	r.byID[sub.id] = sub
	r.mu.Unlock()
	return sub
}

// Remove unregisters the subscription with the given ID.
func (r *Registry) Remove(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	sub.active.Store(false)
	delete(r.byID, id)

	subs := r.topics[sub.topic]
	for i, s := range subs {
		if s.id == id {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.topics, sub.topic)
	} else {
		r.topics[sub.topic] = subs
	}
	return true
}

// HandlersFor returns the handlers for topic in registration order.
// An unknown topic yields an empty slice.
func (r *Registry) HandlersFor(topic string) []Handler {
	subs := r.subscriptions(topic)
	out := make([]Handler, len(subs))
	for i, s := range subs {
		out[i] = s.handler
	}
	return out
}

// subscriptions returns a copy of the subscriptions for topic.
func (r *Registry) subscriptions(topic string) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.topics[topic]
	out := make([]*subscription, len(subs))
	copy(out, subs)
	return out
}

// Topics returns every topic with at least one subscription.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.topics))
	for t := range r.topics {
		out = append(out, t)
	}
	return out
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

type subscription struct {
	id      uint64
	topic   string
	handler Handler
	invoke  Handler
	reg     *Registry
	active  atomic.Bool
}

var _ Subscription = (*subscription)(nil)

func (s *subscription) ID() uint64    { return s.id }
func (s *subscription) Topic() string { return s.topic }

// Close removes the subscription. Closing twice is a no-op.
func (s *subscription) Close() error {
	s.reg.Remove(s.id)
	return nil
}

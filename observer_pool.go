package xcascade

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// ObserverPool delivers observer events off the dispatch path.
//
// Events are sharded by cascade: every event of one cascade goes to the same
// worker queue, so observers see a cascade's events in the order the bus
// emitted them. Different cascades are delivered concurrently. When a queue is
// full the event is dropped and counted.
type ObserverPool struct {
	shards []chan *Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	dropped   atomic.Uint64
	processed atomic.Uint64
	panics    atomic.Uint64
}

// NewObserverPool starts workers goroutines, each owning a queue of
// bufferSize events. Non-positive values fall back to 4 and 1000.
func NewObserverPool(ctx context.Context, workers, bufferSize int) *ObserverPool {
	if workers < 1 {
		workers = 4
	}
	if bufferSize < 1 {
		bufferSize = 1000
	}

	poolCtx, cancel := context.WithCancel(ctx)
	op := &ObserverPool{
		shards: make([]chan *Event, workers),
		ctx:    poolCtx,
		cancel: cancel,
	}
	for i := range op.shards {
		op.shards[i] = make(chan *Event, bufferSize)
		op.wg.Add(1)
		go op.worker(op.shards[i])
	}
	return op
}

// Notify queues e for observers. It never blocks; events arriving after
// Close are ignored.
func (op *ObserverPool) Notify(e Event, observers []Observer) {
	if len(observers) == 0 || op.closed.Load() {
		return
	}

	e.observers = make([]Observer, len(observers))
	copy(e.observers, observers)

	select {
	case op.shardFor(e.CascadeID) <- &e:
	default:
		op.dropped.Add(1)
	}
}

func (op *ObserverPool) shardFor(cascadeID string) chan *Event {
	if len(op.shards) == 1 {
		return op.shards[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(cascadeID))
	return op.shards[h.Sum32()%uint32(len(op.shards))]
}

func (op *ObserverPool) worker(queue chan *Event) {
	defer op.wg.Done()
	for {
		select {
		case e := <-queue:
			op.deliver(e)
		case <-op.ctx.Done():
			for {
				select {
				case e := <-queue:
					op.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (op *ObserverPool) deliver(e *Event) {
	if e == nil {
		return
	}
	for _, obs := range e.observers {
		if obs != nil {
			op.call(obs, *e)
		}
	}
	op.processed.Add(1)
}

func (op *ObserverPool) call(obs Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			op.panics.Add(1)
		}
	}()
	obs.OnEvent(e)
}

// Close stops accepting events and waits up to timeout for queued events to
// be delivered.
func (op *ObserverPool) Close(timeout time.Duration) error {
	if op.closed.Swap(true) {
		return nil
	}
	op.cancel()

	done := make(chan struct{})
	go func() {
		op.wg.Wait()
		close(done)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		return ErrObserverPoolShutdownTimeout
	}
}

// Stats returns current pool statistics.
func (op *ObserverPool) Stats() PoolStats {
	queued := 0
	for _, q := range op.shards {
		queued += len(q)
	}
	return PoolStats{
		Dropped:      op.dropped.Load(),
		Processed:    op.processed.Load(),
		Panics:       op.panics.Load(),
		ActiveEvents: queued,
		Workers:      len(op.shards),
		BufferSize:   cap(op.shards[0]),
	}
}

package xcascade

import (
	"context"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// BusBuilder constructs Bus instances (Builder pattern).
type BusBuilder struct {
	logName string
	logCfg  map[string]any
	logInst Log

	codecName string
	codecInst Codec

	delay          Delay
	middlewares    []Middleware
	observers      []Observer
	logger         *xlog.Logger
	clock          xclock.Clock
	maxDepth       int
	handlerTimeout time.Duration
	serialize      bool

	observerPoolWorkers int
	observerPoolBuffer  int
}

// NewBusBuilder returns a new builder with sensible defaults: in-memory log,
// JSON codec, no latency, no depth limit, synchronous observers.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{
		logName:   MemoryLogName,
		codecName: "json",
	}
}

// WithConfig applies every field of cfg.
func (bb *BusBuilder) WithConfig(cfg Config) *BusBuilder {
	name := cfg.Log
	if name == "" {
		name = MemoryLogName
	}
	bb.WithLog(name, cfg.toMap())
	bb.WithDelay(cfg.Delay())
	bb.WithMaxDepth(cfg.MaxDepth)
	bb.WithHandlerTimeout(cfg.HandlerTimeout)
	if cfg.Serialize {
		bb.WithSerializedPublish()
	}
	if cfg.ObserverWorkers > 0 {
		bb.WithObserverPool(cfg.ObserverWorkers, cfg.ObserverBuffer)
	}
	return bb
}

// WithLog selects a registered log backend by name.
func (bb *BusBuilder) WithLog(name string, cfg map[string]any) *BusBuilder {
	bb.logName = name
	bb.logCfg = cfg
	return bb
}

// WithLogInstance accepts a ready Log instance.
func (bb *BusBuilder) WithLogInstance(l Log) *BusBuilder {
	bb.logInst = l
	return bb
}

func (bb *BusBuilder) WithCodec(name string) *BusBuilder {
	bb.codecName = name
	return bb
}

// WithCodecInstance accepts a ready Codec instance.
func (bb *BusBuilder) WithCodecInstance(c Codec) *BusBuilder {
	bb.codecInst = c
	return bb
}

// WithDelay sets the latency strategy applied before each handler call.
func (bb *BusBuilder) WithDelay(d Delay) *BusBuilder {
	bb.delay = d
	return bb
}

func (bb *BusBuilder) WithMiddleware(mw ...Middleware) *BusBuilder {
	if len(mw) == 0 {
		return bb
	}
	bb.middlewares = append(bb.middlewares, mw...)
	return bb
}

func (bb *BusBuilder) WithObserver(obs ...Observer) *BusBuilder {
	for _, o := range obs {
		if o != nil {
			bb.observers = append(bb.observers, o)
		}
	}
	return bb
}

// WithObserverPool switches observers to asynchronous delivery.
func (bb *BusBuilder) WithObserverPool(workers, bufferSize int) *BusBuilder {
	bb.observerPoolWorkers = workers
	bb.observerPoolBuffer = bufferSize
	return bb
}

func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

// WithMaxDepth rejects publishes nested deeper than n levels below the root.
// Zero disables the guard.
func (bb *BusBuilder) WithMaxDepth(n int) *BusBuilder {
	if n >= 0 {
		bb.maxDepth = n
	}
	return bb
}

// WithHandlerTimeout bounds every handler call, including its nested cascades.
func (bb *BusBuilder) WithHandlerTimeout(d time.Duration) *BusBuilder {
	if d > 0 {
		bb.handlerTimeout = d
	}
	return bb
}

// WithSerializedPublish makes independent top-level cascades mutually exclusive.
func (bb *BusBuilder) WithSerializedPublish() *BusBuilder {
	bb.serialize = true
	return bb
}

func (bb *BusBuilder) Build() (*Bus, error) {
	var lg Log
	var err error

	switch {
	case bb.logInst != nil:
		lg = bb.logInst
	case bb.logName != "":
		lg, err = NewLog(bb.logName, bb.logCfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoLogConfigured
	}

	var cd Codec
	if bb.codecInst != nil {
		cd = bb.codecInst
	} else {
		cd, err = NewCodec(bb.codecName)
		if err != nil {
			return nil, err
		}
	}

	var clk xclock.Clock
	if bb.clock != nil {
		clk = bb.clock
	} else {
		clk = xclock.Default()
	}
	var logger *xlog.Logger
	if bb.logger != nil {
		logger = bb.logger
	} else {
		logger = xlog.Default()
	}
	delay := bb.delay
	if delay == nil {
		delay = NoDelay()
	}

	mws := make([]Middleware, 0, len(bb.middlewares)+1)
	mws = append(mws, bb.middlewares...)
	if bb.handlerTimeout > 0 {
		mws = append(mws, TimeoutMiddleware(bb.handlerTimeout))
	}

	b := &Bus{
		log:         lg,
		registry:    NewRegistry(),
		codec:       cd,
		clock:       clk,
		logger:      logger,
		delay:       delay,
		middlewares: mws,
		maxDepth:    bb.maxDepth,
		metrics:     &busMetrics{},
	}
	if bb.serialize {
		b.serial = make(chan struct{}, 1)
	}
	if bb.observerPoolWorkers > 0 {
		b.observerPool = NewObserverPool(context.Background(), bb.observerPoolWorkers, bb.observerPoolBuffer)
	}

	// Attach logging observer first unless already supplied externally.
	hasLoggingObserver := false
	for _, o := range bb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver && logger != nil {
		b.AddObserver(LoggingObserver{Logger: logger})
	}

	for _, o := range bb.observers {
		b.AddObserver(o)
	}

	return b, nil
}

// New constructs a Bus via Builder and returns a close func for convenience.
func New(init func(b *BusBuilder)) (*Bus, func() error, error) {
	b := NewBusBuilder()
	if init != nil {
		init(b)
	}
	bus, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return bus.Close(context.Background()) }
	return bus, closeFn, nil
}

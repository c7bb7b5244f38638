package xcascade

import (
	"time"
)

// PublishEvent describes a single message in a batch publish call.
type PublishEvent struct {
	Topic   string
	Payload any
}

// EventType enumerates internal lifecycle events for Observer pattern.
type EventType string

const (
	Recorded     EventType = "recorded"
	HandlerStart EventType = "handler_start"
	HandlerDone  EventType = "handler_done"
	Dispatched   EventType = "dispatched"
	Error        EventType = "error"
)

// Event carries telemetry for observers.
type Event struct {
	Type           EventType
	Topic          string
	CascadeID      string
	Seq            uint64
	ParentSeq      uint64
	Depth          int
	SubscriptionID uint64
	Envelope       Envelope
	Duration       time.Duration
	Err            error

	// Internal: attached for async dispatch
	observers []Observer
}

// PoolStats returns telemetry about the observer pool.
type PoolStats struct {
	Dropped      uint64 // Events dropped due to full buffer
	Processed    uint64 // Events successfully processed
	Panics       uint64 // Observer panics recovered by workers
	ActiveEvents int    // Current queue depth
	Workers      int    // Number of dispatch goroutines
	BufferSize   int    // Channel capacity
}

// Metrics defines observable telemetry for the bus.
type Metrics struct {
	Published        uint64
	Rejected         uint64
	HandlersInvoked  uint64
	HandlerFailures  uint64
	HandlerPanics    uint64
	Subscriptions    int
	MaxDepth         int
	EventsDropped    uint64
	ObserverPanics   uint64
	AvgHandlerTimeMs float64
}

// HealthStatus indicates bus health for Kubernetes probes.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Metrics   Metrics
	Timestamp time.Time
	Message   string
}

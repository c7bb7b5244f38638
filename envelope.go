package xcascade

import (
	"time"
)

// Envelope is the log record of one publish call.
type Envelope struct {
	// Seq is the bus-wide sequence number. It starts at 1 and is the definitive
	// order of dispatch activity.
	Seq uint64
	// ID is a unique envelope identifier.
	ID string
	// Topic is the exact-match channel name.
	Topic string
	// Payload is opaque to the bus.
	Payload any
	// CreatedAt is the record timestamp (from injected clock). Not used for ordering.
	CreatedAt time.Time
	// ParentSeq is the Seq of the envelope whose handler published this one, 0 for roots.
	ParentSeq uint64
	// CascadeID is the ID of the root envelope of the cascade.
	CascadeID string
	// Depth is 0 for top-level publishes.
	Depth int
}

// IsRoot reports whether env was published outside of any handler.
func (e Envelope) IsRoot() bool { return e.ParentSeq == 0 }

package xcascade

import (
	"errors"
	"fmt"
)

var (
	ErrBusClosed                   = errors.New("xcascade: bus is closed")
	ErrInvalidTopic                = errors.New("xcascade: topic must not be empty")
	ErrNilHandler                  = errors.New("xcascade: handler must not be nil")
	ErrSubscriptionNotFound        = errors.New("xcascade: subscription not found")
	ErrMaxDepthExceeded            = errors.New("xcascade: cascade depth limit exceeded")
	ErrHandlerPanic                = errors.New("xcascade: handler panic")
	ErrNoLogConfigured             = errors.New("xcascade: no log configured")
	ErrObserverPoolShutdownTimeout = errors.New("xcascade: observer pool shutdown timeout")
)

type ErrUnknownLog struct{ name string }

func (e ErrUnknownLog) Error() string { return fmt.Sprintf("xcascade: unknown log backend: %s", e.name) }

// HandlerError reports a handler failure during a dispatch round.
// Handlers that return errors from nested publishes produce a chain of
// HandlerErrors, one per cascade level.
type HandlerError struct {
	Topic          string
	Seq            uint64
	SubscriptionID uint64
	Err            error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("xcascade: handler %d failed on %q (seq %d): %v", e.SubscriptionID, e.Topic, e.Seq, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

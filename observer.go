package xcascade

import (
	"strconv"

	"github.com/trickstertwo/xlog"
)

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LoggingObserver is an Adapter that emits bus events via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnEvent(e Event) {
	if o.Logger == nil {
		return
	}
	ev := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("topic", e.Topic),
		xlog.Str("seq", strconv.FormatUint(e.Seq, 10)),
		xlog.Str("depth", strconv.Itoa(e.Depth)),
	)
	if e.SubscriptionID != 0 {
		ev = ev.With(xlog.Str("subscription", strconv.FormatUint(e.SubscriptionID, 10)))
	}
	if e.Duration > 0 {
		ev = ev.With(xlog.Dur("duration", e.Duration))
	}
	if e.Err != nil {
		ev.Warn().Err(e.Err).Msg("xcascade event")
		return
	}
	ev.Debug().Msg("xcascade event")
}

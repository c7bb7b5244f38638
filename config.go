package xcascade

import (
	"strconv"
	"time"
)

// Config controls bus behavior. The zero value is a valid, unbounded,
// zero-latency configuration.
type Config struct {
	// Log names the log backend (default: "memory").
	Log string
	// Retain bounds the in-memory log view (default: 0 = keep all).
	Retain int
	// Latency is the fixed pause before each handler call (default: 0).
	Latency time.Duration
	// Jitter adds up to [0, Jitter] random delay on top of Latency.
	Jitter time.Duration
	// MaxDepth bounds nested publishes (default: 0 = unlimited).
	MaxDepth int
	// HandlerTimeout bounds each handler call (default: 0 = none).
	HandlerTimeout time.Duration
	// Serialize runs independent top-level cascades one at a time.
	Serialize bool
	// ObserverWorkers and ObserverBuffer enable async observer dispatch when
	// ObserverWorkers > 0.
	ObserverWorkers int
	ObserverBuffer  int
}

// ConfigFromMap builds a Config from a loosely typed map, e.g. from viper.AllSettings.
func ConfigFromMap(cfg map[string]any) Config {
	return Config{
		Log:             getString(cfg, "log", MemoryLogName),
		Retain:          maxInt(0, getInt(cfg, "retain", 0)),
		Latency:         getDur(cfg, "latency", 0),
		Jitter:          getDur(cfg, "jitter", 0),
		MaxDepth:        maxInt(0, getInt(cfg, "max_depth", 0)),
		HandlerTimeout:  getDur(cfg, "handler_timeout", 0),
		Serialize:       getBool(cfg, "serialize", false),
		ObserverWorkers: maxInt(0, getInt(cfg, "observer_workers", 0)),
		ObserverBuffer:  maxInt(0, getInt(cfg, "observer_buffer", 0)),
	}
}

// toMap converts Config into the generic map expected by log factories.
func (c Config) toMap() map[string]any {
	return map[string]any{
		"log":              c.Log,
		"retain":           c.Retain,
		"latency":          c.Latency,
		"jitter":           c.Jitter,
		"max_depth":        c.MaxDepth,
		"handler_timeout":  c.HandlerTimeout,
		"serialize":        c.Serialize,
		"observer_workers": c.ObserverWorkers,
		"observer_buffer":  c.ObserverBuffer,
	}
}

// Delay returns the latency strategy described by c.
func (c Config) Delay() Delay {
	switch {
	case c.Jitter > 0:
		return JitterDelay(c.Latency, c.Jitter)
	case c.Latency > 0:
		return FixedDelay(c.Latency)
	default:
		return NoDelay()
	}
}

func getString(cfg map[string]any, k, d string) string {
	if v, ok := cfg[k].(string); ok && v != "" {
		return v
	}
	return d
}

func getInt(cfg map[string]any, k string, d int) int {
	switch v := cfg[k].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getBool(cfg map[string]any, k string, d bool) bool {
	switch v := cfg[k].(type) {
	case bool:
		return v
	case string:
		switch v {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return d
}

func getDur(cfg map[string]any, k string, d time.Duration) time.Duration {
	switch v := cfg[k].(type) {
	case time.Duration:
		return v
	case string:
		if p, err := time.ParseDuration(v); err == nil {
			return p
		}
	case float64:
		return time.Duration(v)
	case int:
		return time.Duration(v)
	case int64:
		return time.Duration(v)
	}
	return d
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

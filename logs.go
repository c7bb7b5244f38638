package xcascade

import (
	"errors"
	"sync"
)

// LogFactory constructs logs from a config blob.
type LogFactory func(cfg map[string]any) (Log, error)

// MemoryLogName is the built-in in-memory log backend.
const MemoryLogName = "memory"

var (
	logRegistryMu sync.RWMutex
	logRegistry   = map[string]LogFactory{
		MemoryLogName: func(cfg map[string]any) (Log, error) {
			return NewMemoryLog(getInt(cfg, "retain", 0)), nil
		},
	}
)

// RegisterLog registers a log backend.
func RegisterLog(name string, factory LogFactory) error {
	if name == "" {
		return errors.New("log name must not be empty")
	}
	if factory == nil {
		return errors.New("log factory must not be nil")
	}
	logRegistryMu.Lock()
	logRegistry[name] = factory
	logRegistryMu.Unlock()
	return nil
}

// NewLog constructs a log by name with config.
func NewLog(name string, cfg map[string]any) (Log, error) {
	logRegistryMu.RLock()
	f, ok := logRegistry[name]
	logRegistryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownLog{name: name}
	}
	return f(cfg)
}

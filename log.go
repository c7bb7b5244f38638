package xcascade

import (
	"sync"
)

// MemoryLog is an in-memory Log. With a positive retain it keeps only the most
// recent entries; Total keeps counting every append regardless.
type MemoryLog struct {
	mu      sync.RWMutex
	retain  int
	entries []Envelope
	total   uint64
}

var _ Log = (*MemoryLog)(nil)

// NewMemoryLog creates a log. retain <= 0 keeps every entry.
func NewMemoryLog(retain int) *MemoryLog {
	if retain < 0 {
		retain = 0
	}
	return &MemoryLog{retain: retain}
}

func (l *MemoryLog) Append(env Envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	l.entries = append(l.entries, env)
	if l.retain > 0 && len(l.entries) > l.retain {
		// append reallocates the shrunken slice, releasing the dropped prefix.
		l.entries = l.entries[len(l.entries)-l.retain:]
	}
	return nil
}

func (l *MemoryLog) Entries() []Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Envelope, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *MemoryLog) Tail(n int) []Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return []Envelope{}
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Envelope, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *MemoryLog) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

package xcascade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Codec is the Strategy used to convert loosely typed payloads into typed values.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// JSONCodec is the default JSON implementation.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
func (JSONCodec) Name() string                    { return "json" }

// CodecFactory constructs codecs via Factory pattern.
type CodecFactory func() Codec

var (
	codecRegistryMu sync.RWMutex
	codecRegistry   = map[string]CodecFactory{
		"json": func() Codec { return JSONCodec{} },
	}
)

// RegisterCodec registers a codec factory by name.
func RegisterCodec(name string, factory CodecFactory) error {
	if name == "" {
		return errors.New("codec name must not be empty")
	}
	if factory == nil {
		return errors.New("codec factory must not be nil")
	}
	codecRegistryMu.Lock()
	codecRegistry[name] = factory
	codecRegistryMu.Unlock()
	return nil
}

// NewCodec constructs a codec by name or returns an error.
func NewCodec(name string) (Codec, error) {
	codecRegistryMu.RLock()
	f, ok := codecRegistry[name]
	codecRegistryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("codec %q not registered", name)
	}
	return f(), nil
}

// Decode converts payload into T. A payload that already is a T is returned
// as is; []byte payloads are unmarshaled; anything else is round-tripped
// through the Codec found in ctx (JSON if none was injected).
func Decode[T any](ctx context.Context, payload any) (T, error) {
	if v, ok := payload.(T); ok {
		return v, nil
	}
	c, ok := CodecFromContext(ctx)
	if !ok {
		c = JSONCodec{}
	}
	return DecodeCodec[T](c, payload)
}

// DecodeCodec is Decode with an explicit codec.
func DecodeCodec[T any](c Codec, payload any) (T, error) {
	var v T
	data, ok := payload.([]byte)
	if !ok {
		var err error
		if data, err = c.Marshal(payload); err != nil {
			return v, fmt.Errorf("xcascade: encode payload: %w", err)
		}
	}
	if err := c.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("xcascade: decode payload: %w", err)
	}
	return v, nil
}

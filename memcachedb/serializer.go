package memcachedb

import "fmt"

// Serializer converts Go values to and from the opaque byte strings
// MemcacheDB stores. The library ships no concrete implementation: callers
// supply one (JSON, gob, protobuf, whatever their values need) via
// WithSerializer. When no Serializer is configured, Set/Add/Get-family
// methods that accept an any value require raw=true and simply pass []byte
// values through unchanged.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
}

// rawSerializer implements Serializer as the identity transform over
// []byte, backing raw=true calls.
type rawSerializer struct{}

func (rawSerializer) Serialize(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: raw mode requires a []byte value, got %T", BadArgument, v)
	}
	return b, nil
}

func (rawSerializer) Deserialize(data []byte, v any) error {
	ptr, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("%w: raw mode requires a *[]byte destination, got %T", BadArgument, v)
	}
	*ptr = data
	return nil
}

// Package codec serializes cache values before they are encrypted.
package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Supported codec names accepted by ByName.
const (
	NameMsgpack = "msgpack"
	NameCBOR    = "cbor"
	NameJSON    = "json"
)

// ByName resolves a configured codec name. An empty name selects msgpack.
func ByName[V any](name string) (Codec[V], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameMsgpack:
		return Msgpack[V]{}, nil
	case NameCBOR:
		return NewCBOR[V]()
	case NameJSON:
		return JSON[V]{}, nil
	default:
		return nil, fmt.Errorf("codec: unsupported codec %q", name)
	}
}

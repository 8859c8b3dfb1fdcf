// Package wire implements the two interchangeable codec families used
// to serialize request and response bodies: a compact binary form
// (tendermint/go-amino) and a self-describing form (fxamacker/cbor/v2).
// The codec is pure — it only encodes/decodes byte slices in memory; it
// never touches a connection. See package protocol for the framing
// that puts these bytes on the wire.
package wire

import (
	"github.com/fxamacker/cbor/v2"
	amino "github.com/tendermint/go-amino"
)

// Family identifies which codec family a connection negotiated during
// the handshake.
type Family uint8

const (
	// FamilyCompact is the compact binary form, backed by go-amino.
	FamilyCompact Family = 0
	// FamilySelfDescribing is the self-describing form, backed by cbor.
	FamilySelfDescribing Family = 1
)

func (f Family) String() string {
	if f == FamilySelfDescribing {
		return "self-describing(cbor)"
	}
	return "compact(amino)"
}

// Codec encodes and decodes values of a declared type to/from bytes.
// Each protocol connection holds one Codec, fixed by the handshake, and
// uses it for every request and response body; Encode/Decode never
// allocate session state or perform I/O.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, out interface{}) error
}

var aminoCodec = amino.NewCodec()

type aminoWireCodec struct{}

func (aminoWireCodec) Encode(v interface{}) ([]byte, error) {
	return aminoCodec.MarshalBinaryBare(v)
}

func (aminoWireCodec) Decode(data []byte, out interface{}) error {
	return aminoCodec.UnmarshalBinaryBare(data, out)
}

type cborWireCodec struct{}

func (cborWireCodec) Encode(v interface{}) ([]byte, error) {
	return cbor.Marshal(v)
}

func (cborWireCodec) Decode(data []byte, out interface{}) error {
	return cbor.Unmarshal(data, out)
}

// For selects the Codec implementing the given family.
func For(family Family) Codec {
	if family == FamilySelfDescribing {
		return cborWireCodec{}
	}
	return aminoWireCodec{}
}

// Option is the presence-byte-plus-payload combinator from §4.1: a
// nil-able value of type T made explicit so it survives both codec
// families identically instead of relying on each family's own notion
// of a nil pointer.
type Option[T any] struct {
	Present bool
	Value   T
}

// Some wraps a present value.
func Some[T any](v T) Option[T] {
	return Option[T]{Present: true, Value: v}
}

// None constructs an absent value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it was present, mirroring the
// (value, ok) idiom used for map lookups elsewhere in the codebase.
func (o Option[T]) Get() (T, bool) {
	return o.Value, o.Present
}

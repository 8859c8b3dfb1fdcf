// Package hash implements the fixed-width content digest used to
// address every object in the store, adapted from the teacher's
// common/crypto/address.Address pattern (fixed-size array, binary and
// text (de)serialization, equality, ordering).
package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/icristescu/irmin-server/common/errors"
)

const moduleName = "hash"

// Size is the digest width in bytes.
const Size = 32

// ErrMalformed is returned when a hash is the wrong length.
var ErrMalformed = errors.New(moduleName, 1, "hash: malformed digest")

// Hash is a fixed-width content digest with equality and ordering.
type Hash [Size]byte

// Of computes the content hash of a byte slice.
func Of(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// MarshalBinary encodes the hash into binary form.
func (h Hash) MarshalBinary() ([]byte, error) {
	out := make([]byte, Size)
	copy(out, h[:])
	return out, nil
}

// UnmarshalBinary decodes a binary marshaled hash.
func (h *Hash) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return ErrMalformed
	}
	copy(h[:], data)
	return nil
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Equal reports whether h and cmp address the same content.
func (h Hash) Equal(cmp Hash) bool {
	return bytes.Equal(h[:], cmp[:])
}

// Compare gives a total order over hashes, used for deterministic
// listing and as a map/tree key.
func (h Hash) Compare(cmp Hash) int {
	return bytes.Compare(h[:], cmp[:])
}

// IsZero reports whether h is the all-zero hash (used to represent an
// absent parent/root).
func (h Hash) IsZero() bool {
	return h == Hash{}
}

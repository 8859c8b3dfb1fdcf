package hash_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icristescu/irmin-server/hash"
)

// TestContentAddressing exercises §8 invariant 6: two hashes of equal
// content are equal, and distinct content hashes differ.
func TestContentAddressing(t *testing.T) {
	require := require.New(t)

	a := hash.Of([]byte("hello"))
	b := hash.Of([]byte("hello"))
	c := hash.Of([]byte("world"))

	require.True(a.Equal(b), "equal content must hash equal")
	require.False(a.Equal(c), "distinct content must hash distinct")
}

func TestBinaryRoundTrip(t *testing.T) {
	require := require.New(t)

	h := hash.Of([]byte("round trip me"))
	data, err := h.MarshalBinary()
	require.NoError(err, "MarshalBinary")

	var out hash.Hash
	require.NoError(out.UnmarshalBinary(data), "UnmarshalBinary")
	require.True(h.Equal(out), "round-tripped hash must equal the original")
}

func TestUnmarshalBinaryRejectsWrongLength(t *testing.T) {
	var h hash.Hash
	require.Error(t, h.UnmarshalBinary([]byte{1, 2, 3}), "malformed digest")
}

func TestZero(t *testing.T) {
	require := require.New(t)
	var h hash.Hash
	require.True(h.IsZero())
	require.False(hash.Of([]byte("x")).IsZero())
}

func TestCompareOrdering(t *testing.T) {
	a := hash.Of([]byte("a"))
	b := hash.Of([]byte("b"))
	require.Equal(t, 0, a.Compare(a))
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	require.True(t, a.Compare(b) < 0)
}

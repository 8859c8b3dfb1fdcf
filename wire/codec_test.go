package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icristescu/irmin-server/wire"
)

type sample struct {
	Name  string
	Count int64
	Tags  []string
}

// TestRoundTrip exercises §8 invariant 1 for both codec families (§4.1
// "two interchangeable codec families").
func TestRoundTrip(t *testing.T) {
	for _, family := range []wire.Family{wire.FamilyCompact, wire.FamilySelfDescribing} {
		family := family
		t.Run(family.String(), func(t *testing.T) {
			require := require.New(t)

			codec := wire.For(family)
			in := sample{Name: "a", Count: 7, Tags: []string{"x", "y"}}

			data, err := codec.Encode(in)
			require.NoError(err, "Encode")

			var out sample
			require.NoError(codec.Decode(data, &out), "Decode")
			require.Equal(in, out)
		})
	}
}

func TestOptionPresence(t *testing.T) {
	require := require.New(t)

	some := wire.Some(42)
	v, ok := some.Get()
	require.True(ok)
	require.Equal(42, v)

	none := wire.None[int]()
	_, ok = none.Get()
	require.False(ok)
}

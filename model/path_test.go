package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icristescu/irmin-server/model"
)

func TestParsePath(t *testing.T) {
	require := require.New(t)

	require.True(model.ParsePath("").IsEmpty(), "empty string parses to the root path")
	require.Equal(model.PathOf("a", "b"), model.ParsePath("a/b"))
}

func TestPathEqual(t *testing.T) {
	require := require.New(t)

	require.True(model.PathOf("a", "b").Equal(model.PathOf("a", "b")))
	require.False(model.PathOf("a", "b").Equal(model.PathOf("a", "c")))
	require.False(model.PathOf("a").Equal(model.PathOf("a", "b")))
}

func TestPathAppendHead(t *testing.T) {
	require := require.New(t)

	p := model.PathOf("a").Append("b")
	require.Equal(model.PathOf("a", "b"), p)

	step, rest := p.Head()
	require.Equal("a", step)
	require.Equal(model.PathOf("b"), rest)
}

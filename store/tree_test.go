package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/store"
)

func newRepo() *store.Repo {
	return store.NewMemoryRepo("main")
}

func TestTreeAddFindRemove(t *testing.T) {
	require := require.New(t)
	repo := newRepo()

	t1, err := store.Empty().Add(repo, model.PathOf("a", "b"), model.Contents("v1"))
	require.NoError(err)

	v, ok, err := t1.Find(repo, model.PathOf("a", "b"))
	require.NoError(err)
	require.True(ok)
	require.Equal(model.Contents("v1"), v)

	_, ok, err = t1.Find(repo, model.PathOf("a", "c"))
	require.NoError(err)
	require.False(ok)

	memOK, err := t1.Mem(repo, model.PathOf("a", "b"))
	require.NoError(err)
	require.True(memOK)

	memTreeOK, err := t1.MemTree(repo, model.PathOf("a"))
	require.NoError(err)
	require.True(memTreeOK)

	t2, err := t1.Remove(repo, model.PathOf("a", "b"))
	require.NoError(err)
	_, ok, err = t2.Find(repo, model.PathOf("a", "b"))
	require.NoError(err)
	require.False(ok, "removed path must be absent")

	// t1 must remain valid and unmodified (§4.7 "source handle remains
	// valid").
	v, ok, err = t1.Find(repo, model.PathOf("a", "b"))
	require.NoError(err)
	require.True(ok)
	require.Equal(model.Contents("v1"), v)
}

// TestTreeListOrderInsensitive exercises the S3 scenario of §8.
func TestTreeListOrderInsensitive(t *testing.T) {
	require := require.New(t)
	repo := newRepo()

	h0 := store.Empty()
	h1, err := h0.Add(repo, model.PathOf("x"), model.Contents("X"))
	require.NoError(err)
	h2, err := h1.Add(repo, model.PathOf("y"), model.Contents("Y"))
	require.NoError(err)

	entries, err := h2.List(repo, model.Path{})
	require.NoError(err)
	require.ElementsMatch([]model.ListEntry{
		{Name: "x", Kind: model.KindContents},
		{Name: "y", Kind: model.KindContents},
	}, entries)

	ok, err := h2.Mem(repo, model.PathOf("x"))
	require.NoError(err)
	require.True(ok)
}

func TestSaveContentAddressed(t *testing.T) {
	require := require.New(t)
	repo := newRepo()

	t1, err := store.Empty().Add(repo, model.PathOf("a"), model.Contents("v"))
	require.NoError(err)
	t2, err := store.Empty().Add(repo, model.PathOf("a"), model.Contents("v"))
	require.NoError(err)

	k1, err := t1.Save(repo)
	require.NoError(err)
	k2, err := t2.Save(repo)
	require.NoError(err)
	require.Equal(k1, k2, "equal trees must save to equal keys")
}

func TestMergeConflict(t *testing.T) {
	require := require.New(t)
	repo := newRepo()

	base, err := store.Empty().Add(repo, model.PathOf("k"), model.Contents("base"))
	require.NoError(err)
	ours, err := base.Add(repo, model.PathOf("k"), model.Contents("ours"))
	require.NoError(err)
	theirs, err := base.Add(repo, model.PathOf("k"), model.Contents("theirs"))
	require.NoError(err)

	_, conflict, err := store.Merge(repo, base, ours, theirs)
	require.NoError(err)
	require.True(conflict, "diverging edits to the same key must conflict")
}

func TestMergeFastForward(t *testing.T) {
	require := require.New(t)
	repo := newRepo()

	base, err := store.Empty().Add(repo, model.PathOf("k"), model.Contents("base"))
	require.NoError(err)
	ours := base
	theirs, err := base.Add(repo, model.PathOf("k"), model.Contents("new"))
	require.NoError(err)

	merged, conflict, err := store.Merge(repo, base, ours, theirs)
	require.NoError(err)
	require.False(conflict)

	v, ok, err := merged.Find(repo, model.PathOf("k"))
	require.NoError(err)
	require.True(ok)
	require.Equal(model.Contents("new"), v)
}

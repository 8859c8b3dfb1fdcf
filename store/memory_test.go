package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/store"
)

// TestBranchTestAndSetCAS exercises the S4 scenario of §8: a
// Test_and_set against a stale expected value must fail without
// mutating the branch.
func TestBranchTestAndSetCAS(t *testing.T) {
	require := require.New(t)
	repo := newRepo()

	c1 := hash.Of([]byte("commit-1"))
	c2 := hash.Of([]byte("commit-2"))
	c3 := hash.Of([]byte("commit-3"))

	ok, err := repo.Branches.TestAndSet("main", store.None(), store.Some(c1))
	require.NoError(err)
	require.True(ok, "creating from absent must succeed")

	ok, err = repo.Branches.TestAndSet("main", store.Some(c2), store.Some(c3))
	require.NoError(err)
	require.False(ok, "CAS against a stale expected value must fail")

	cur, found := repo.Branches.Find("main")
	require.True(found)
	require.Equal(c1, cur, "branch must be unchanged after a failed CAS")

	ok, err = repo.Branches.TestAndSet("main", store.Some(c1), store.Some(c3))
	require.NoError(err)
	require.True(ok)

	cur, found = repo.Branches.Find("main")
	require.True(found)
	require.Equal(c3, cur)
}

func TestBranchSetFindRemoveList(t *testing.T) {
	require := require.New(t)
	repo := newRepo()

	c1 := hash.Of([]byte("c1"))
	require.NoError(repo.Branches.Set("dev", c1))
	require.True(repo.Branches.Mem("dev"))

	require.Contains(repo.Branches.List(), model.BranchName("dev"))

	require.NoError(repo.Branches.Remove("dev"))
	require.False(repo.Branches.Mem("dev"))
}

func TestBranchWatchReceivesUpdate(t *testing.T) {
	require := require.New(t)
	repo := newRepo()

	sub := repo.Branches.Watch()
	defer sub.Close()

	c1 := hash.Of([]byte("watched"))
	require.NoError(repo.Branches.Set("main", c1))

	ev, ok := (<-sub.Out()).(store.BranchEvent)
	require.True(ok)
	require.Equal(model.BranchName("main"), ev.Branch)
	require.Equal(c1, ev.Commit)
	require.True(ev.Live)
}

func TestBranchWatchKeyIsolatesOtherBranches(t *testing.T) {
	require := require.New(t)
	repo := newRepo()

	sub := repo.Branches.WatchKey("feature")
	defer sub.Close()

	require.NoError(repo.Branches.Set("main", hash.Of([]byte("unrelated"))))

	c1 := hash.Of([]byte("feature-1"))
	require.NoError(repo.Branches.Set("feature", c1))

	ev, ok := (<-sub.Out()).(store.BranchEvent)
	require.True(ok)
	require.Equal(model.BranchName("feature"), ev.Branch)
	require.Equal(c1, ev.Commit)
}

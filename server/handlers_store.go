package server

import (
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/store"
	"github.com/icristescu/irmin-server/wire"
)

func init() {
	register(protocol.CmdStoreFind, handleStoreFind)
	register(protocol.CmdStoreMem, handleStoreMem)
	register(protocol.CmdStoreMemTree, handleStoreMemTree)
	register(protocol.CmdStoreFindTree, handleStoreFindTree)
	register(protocol.CmdStoreSet, handleStoreSet)
	register(protocol.CmdStoreSetTree, handleStoreSetTree)
	register(protocol.CmdStoreRemove, handleStoreRemove)
	register(protocol.CmdStoreTestAndSet, handleStoreTestAndSet)
	register(protocol.CmdStoreTestAndSetTree, handleStoreTestAndSetTree)
}

func handleStoreFind(sess *Session, req *protocol.PathRequest) (*protocol.FindResponse, error) {
	tree, err := sess.currentTree(sess.branch)
	if err != nil {
		return nil, err
	}
	contents, ok, err := tree.Find(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &protocol.FindResponse{}, nil
	}
	return &protocol.FindResponse{Contents: wire.Some(contents)}, nil
}

func handleStoreMem(sess *Session, req *protocol.PathRequest) (*protocol.OkResponse, error) {
	tree, err := sess.currentTree(sess.branch)
	if err != nil {
		return nil, err
	}
	ok, err := tree.Mem(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	return &protocol.OkResponse{Ok: ok}, nil
}

func handleStoreMemTree(sess *Session, req *protocol.PathRequest) (*protocol.OkResponse, error) {
	tree, err := sess.currentTree(sess.branch)
	if err != nil {
		return nil, err
	}
	ok, err := tree.MemTree(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	return &protocol.OkResponse{Ok: ok}, nil
}

func handleStoreFindTree(sess *Session, req *protocol.PathRequest) (*protocol.TreeHandleResponse, error) {
	tree, err := sess.currentTree(sess.branch)
	if err != nil {
		return nil, err
	}
	sub, ok, err := tree.FindTree(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &protocol.TreeHandleResponse{}, nil
	}
	id := sess.allocTree(sub)
	return &protocol.TreeHandleResponse{Handle: wire.Some(id)}, nil
}

func handleStoreSet(sess *Session, req *protocol.SetRequest) (*protocol.Unit, error) {
	err := sess.retryCommit(sess.branch, req.Info, func(t *store.Tree) (*store.Tree, error) {
		return t.Add(sess.repo, req.Path, req.Contents)
	})
	if err != nil {
		return nil, err
	}
	return &protocol.Unit{}, nil
}

func handleStoreSetTree(sess *Session, req *protocol.SetTreeRequest) (*protocol.Unit, error) {
	sub, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	err := sess.retryCommit(sess.branch, req.Info, func(t *store.Tree) (*store.Tree, error) {
		return t.AddTree(sess.repo, req.Path, sub)
	})
	if err != nil {
		return nil, err
	}
	return &protocol.Unit{}, nil
}

func handleStoreRemove(sess *Session, req *protocol.RemoveRequest) (*protocol.Unit, error) {
	err := sess.retryCommit(sess.branch, req.Info, func(t *store.Tree) (*store.Tree, error) {
		return t.Remove(sess.repo, req.Path)
	})
	if err != nil {
		return nil, err
	}
	return &protocol.Unit{}, nil
}

// handleStoreTestAndSet performs a single atomic compare-and-swap of
// the value at req.Path without retrying on failure (§4.7, §9 open
// question #1 resolved to ok-false, §8 invariant 5).
func handleStoreTestAndSet(sess *Session, req *protocol.TestAndSetRequest) (*protocol.OkResponse, error) {
	head, hadHead := sess.currentHead(sess.branch)
	var base *store.Tree
	if hadHead {
		t, err := store.OfCommit(sess.repo, head)
		if err != nil {
			return nil, err
		}
		base = t
	} else {
		base = store.Empty()
	}

	current, ok, err := base.Find(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}

	testValue, wantPresent := req.Test.Get()
	matches := ok == wantPresent && (!wantPresent || string(current) == string(testValue))
	if !matches {
		return &protocol.OkResponse{Ok: false}, nil
	}

	newTree := base
	if setValue, present := req.Set.Get(); present {
		newTree, err = base.Add(sess.repo, req.Path, setValue)
	} else {
		newTree, err = base.Remove(sess.repo, req.Path)
	}
	if err != nil {
		return nil, err
	}

	casOK, err := commitOnce(sess, head, hadHead, req.Info, newTree)
	if err != nil {
		return nil, err
	}
	return &protocol.OkResponse{Ok: casOK}, nil
}

func handleStoreTestAndSetTree(sess *Session, req *protocol.TestAndSetTreeRequest) (*protocol.OkResponse, error) {
	head, hadHead := sess.currentHead(sess.branch)
	var base *store.Tree
	if hadHead {
		t, err := store.OfCommit(sess.repo, head)
		if err != nil {
			return nil, err
		}
		base = t
	} else {
		base = store.Empty()
	}

	current, ok, err := base.FindTree(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}

	testID, wantPresent := req.Test.Get()
	matches := ok == wantPresent
	if matches && wantPresent {
		testTree, testOK := sess.trees.Get(testID)
		if !testOK {
			return nil, ErrUnknownHandle
		}
		testKey, err := testTree.Key(sess.repo)
		if err != nil {
			return nil, err
		}
		curKey, err := current.Key(sess.repo)
		if err != nil {
			return nil, err
		}
		matches = testKey == curKey
	}
	if !matches {
		return &protocol.OkResponse{Ok: false}, nil
	}

	newTree := base
	if setID, present := req.Set.Get(); present {
		sub, subOK := sess.trees.Get(setID)
		if !subOK {
			return nil, ErrUnknownHandle
		}
		newTree, err = base.AddTree(sess.repo, req.Path, sub)
	} else {
		newTree, err = base.Remove(sess.repo, req.Path)
	}
	if err != nil {
		return nil, err
	}

	casOK, err := commitOnce(sess, head, hadHead, req.Info, newTree)
	if err != nil {
		return nil, err
	}
	return &protocol.OkResponse{Ok: casOK}, nil
}

// commitOnce persists newTree, builds a commit against head, and
// attempts a single branch-level compare-and-swap — no retry, matching
// §4.7's "fails cleanly ... without further retry" for test_and_set.
func commitOnce(sess *Session, head hash.Hash, hadHead bool, info model.Info, newTree *store.Tree) (bool, error) {
	treeKey, err := newTree.Save(sess.repo)
	if err != nil {
		return false, err
	}

	var parents []hash.Hash
	if hadHead {
		parents = []hash.Hash{head}
	}
	commit := model.Commit{Info: info, Parents: parents, Tree: treeKey.Hash}
	commitHash := store.SaveCommit(sess.repo, commit)

	test := store.None()
	if hadHead {
		test = store.Some(head)
	}
	return sess.repo.Branches.TestAndSet(sess.branch, test, store.Some(commitHash))
}

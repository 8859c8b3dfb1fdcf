package server

import (
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/store"
	"github.com/icristescu/irmin-server/wire"
)

func init() {
	registerBackendPassthrough(protocol.CmdContentsMem, protocol.CmdContentsFind, protocol.CmdContentsAdd,
		protocol.CmdContentsUnsafeAdd, protocol.CmdContentsIndex, protocol.CmdContentsMerge,
		func(s *Session) store.ObjectStore { return s.repo.Contents })
	registerBackendPassthrough(protocol.CmdNodeMem, protocol.CmdNodeFind, protocol.CmdNodeAdd,
		protocol.CmdNodeUnsafeAdd, protocol.CmdNodeIndex, protocol.CmdNodeMerge,
		func(s *Session) store.ObjectStore { return s.repo.Nodes })
	registerBackendPassthrough(protocol.CmdCommitMem, protocol.CmdCommitFind, protocol.CmdCommitAdd,
		protocol.CmdCommitUnsafeAdd, protocol.CmdCommitIndex, protocol.CmdCommitMerge,
		func(s *Session) store.ObjectStore { return s.repo.Commits })

	register(protocol.CmdBranchStoreMem, handleBranchStoreMem)
	register(protocol.CmdBranchStoreFind, handleBranchStoreFind)
	register(protocol.CmdBranchStoreSet, handleBranchStoreSet)
	register(protocol.CmdBranchStoreTestAndSet, handleBranchStoreTestAndSet)
	register(protocol.CmdBranchStoreRemove, handleBranchStoreRemove)
	register(protocol.CmdBranchStoreList, handleBranchStoreList)
	register(protocol.CmdBranchStoreClear, handleBranchStoreClear)
	register(protocol.CmdBranchStoreWatch, handleBranchStoreWatch)
	register(protocol.CmdBranchStoreWatchKey, handleBranchStoreWatchKey)
	register(protocol.CmdBranchStoreUnwatch, handleBranchStoreUnwatch)
}

// registerBackendPassthrough binds the six ObjectStore operations
// (§4.7 "Backend passthrough") to one of the three object kinds,
// picked by sel at request time; contents, nodes, and commits share
// this single implementation since all three are plain ObjectStores.
func registerBackendPassthrough(memName, findName, addName, unsafeAddName, indexName, mergeName string, sel func(*Session) store.ObjectStore) {
	register(memName, func(sess *Session, req *protocol.HashRequest) (*protocol.OkResponse, error) {
		return &protocol.OkResponse{Ok: sel(sess).Mem(req.Hash)}, nil
	})
	register(findName, func(sess *Session, req *protocol.HashRequest) (*protocol.DataResponse, error) {
		data, ok := sel(sess).Find(req.Hash)
		if !ok {
			return &protocol.DataResponse{}, nil
		}
		return &protocol.DataResponse{Data: wire.Some(data)}, nil
	})
	register(addName, func(sess *Session, req *protocol.AddDataRequest) (*protocol.HashResponse, error) {
		return &protocol.HashResponse{Hash: sel(sess).Add(req.Data)}, nil
	})
	register(unsafeAddName, func(sess *Session, req *protocol.UnsafeAddRequest) (*protocol.Unit, error) {
		if err := sel(sess).UnsafeAdd(req.Hash, req.Data); err != nil {
			return nil, err
		}
		return &protocol.Unit{}, nil
	})
	register(indexName, func(sess *Session, _ *protocol.Unit) (*protocol.IndexResponse, error) {
		return &protocol.IndexResponse{Hashes: sel(sess).Index()}, nil
	})
	register(mergeName, func(sess *Session, req *protocol.MergeHashRequest) (*protocol.MergeHashResponse, error) {
		h, conflict, err := sel(sess).Merge(req.Base, req.Ours, req.Theirs)
		if err != nil {
			return nil, err
		}
		return &protocol.MergeHashResponse{Hash: h, Conflict: conflict}, nil
	})
}

func handleBranchStoreMem(sess *Session, req *protocol.BranchNameRequest) (*protocol.OkResponse, error) {
	return &protocol.OkResponse{Ok: sess.repo.Branches.Mem(req.Branch)}, nil
}

func handleBranchStoreFind(sess *Session, req *protocol.BranchNameRequest) (*protocol.BranchCommitResponse, error) {
	h, ok := sess.repo.Branches.Find(req.Branch)
	if !ok {
		return &protocol.BranchCommitResponse{}, nil
	}
	return &protocol.BranchCommitResponse{Commit: wire.Some(h)}, nil
}

func handleBranchStoreSet(sess *Session, req *protocol.BranchSetRequest) (*protocol.Unit, error) {
	if err := sess.repo.Branches.Set(req.Branch, req.Commit); err != nil {
		return nil, err
	}
	return &protocol.Unit{}, nil
}

func handleBranchStoreTestAndSet(sess *Session, req *protocol.BranchTestAndSetRequest) (*protocol.OkResponse, error) {
	test := store.None()
	if h, ok := req.Test.Get(); ok {
		test = store.Some(h)
	}
	set := store.None()
	if h, ok := req.Set.Get(); ok {
		set = store.Some(h)
	}
	ok, err := sess.repo.Branches.TestAndSet(req.Branch, test, set)
	if err != nil {
		return nil, err
	}
	return &protocol.OkResponse{Ok: ok}, nil
}

func handleBranchStoreRemove(sess *Session, req *protocol.BranchNameRequest) (*protocol.Unit, error) {
	if err := sess.repo.Branches.Remove(req.Branch); err != nil {
		return nil, err
	}
	return &protocol.Unit{}, nil
}

func handleBranchStoreList(sess *Session, _ *protocol.Unit) (*protocol.BranchListResponse, error) {
	return &protocol.BranchListResponse{Branches: sess.repo.Branches.List()}, nil
}

func handleBranchStoreClear(sess *Session, _ *protocol.Unit) (*protocol.Unit, error) {
	if err := sess.repo.Branches.Clear(); err != nil {
		return nil, err
	}
	return &protocol.Unit{}, nil
}

// handleBranchStoreWatch installs the session's branch-level watch
// (§4.7: "at most one of each per session"); events are forwarded as
// status=2 frames between requests by Session.drainWatches.
func handleBranchStoreWatch(sess *Session, _ *protocol.Unit) (*protocol.Unit, error) {
	if sess.watchAll != nil {
		sess.watchAll.Close()
	}
	sess.watchAll = sess.repo.Branches.Watch()
	return &protocol.Unit{}, nil
}

func handleBranchStoreWatchKey(sess *Session, req *protocol.BranchWatchKeyRequest) (*protocol.Unit, error) {
	if sess.watchKey != nil {
		sess.watchKey.Close()
	}
	sess.watchKey = sess.repo.Branches.WatchKey(req.Branch)
	return &protocol.Unit{}, nil
}

func handleBranchStoreUnwatch(sess *Session, _ *protocol.Unit) (*protocol.Unit, error) {
	if sess.watchAll != nil {
		sess.watchAll.Close()
		sess.watchAll = nil
	}
	if sess.watchKey != nil {
		sess.watchKey.Close()
		sess.watchKey = nil
	}
	return &protocol.Unit{}, nil
}

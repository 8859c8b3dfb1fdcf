package server

import (
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/store"
	"github.com/icristescu/irmin-server/wire"
)

func init() {
	register(protocol.CmdTreeEmpty, handleTreeEmpty)
	register(protocol.CmdTreeAdd, handleTreeAdd)
	register(protocol.CmdTreeRemove, handleTreeRemove)
	register(protocol.CmdTreeAddTree, handleTreeAddTree)
	register(protocol.CmdTreeBatchApply, handleTreeBatchApply)
	register(protocol.CmdTreeFind, handleTreeFind)
	register(protocol.CmdTreeMem, handleTreeMem)
	register(protocol.CmdTreeMemTree, handleTreeMemTree)
	register(protocol.CmdTreeList, handleTreeList)
	register(protocol.CmdTreeHash, handleTreeHash)
	register(protocol.CmdTreeKey, handleTreeKey)
	register(protocol.CmdTreeToLocal, handleTreeToLocal)
	register(protocol.CmdTreeOfPath, handleTreeOfPath)
	register(protocol.CmdTreeOfHash, handleTreeOfHash)
	register(protocol.CmdTreeOfCommit, handleTreeOfCommit)
	register(protocol.CmdTreeSave, handleTreeSave)
	register(protocol.CmdTreeMerge, handleTreeMerge)
	register(protocol.CmdTreeCleanup, handleTreeCleanup)
	register(protocol.CmdTreeCleanupAll, handleTreeCleanupAll)
}

func handleTreeEmpty(sess *Session, _ *protocol.Unit) (*protocol.TreeHandleResponse, error) {
	id := sess.allocTree(store.Empty())
	return &protocol.TreeHandleResponse{Handle: wire.Some(id)}, nil
}

func handleTreeAdd(sess *Session, req *protocol.TreeAddRequest) (*protocol.TreeHandleResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	newTree, err := t.Add(sess.repo, req.Path, req.Contents)
	if err != nil {
		return nil, err
	}
	id := sess.allocTree(newTree)
	return &protocol.TreeHandleResponse{Handle: wire.Some(id)}, nil
}

func handleTreeRemove(sess *Session, req *protocol.TreeRemoveRequest) (*protocol.TreeHandleResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	newTree, err := t.Remove(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	id := sess.allocTree(newTree)
	return &protocol.TreeHandleResponse{Handle: wire.Some(id)}, nil
}

func handleTreeAddTree(sess *Session, req *protocol.TreeAddTreeRequest) (*protocol.TreeHandleResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	sub, ok := sess.trees.Get(req.Sub)
	if !ok {
		return nil, ErrUnknownHandle
	}
	newTree, err := t.AddTree(sess.repo, req.Path, sub)
	if err != nil {
		return nil, err
	}
	id := sess.allocTree(newTree)
	return &protocol.TreeHandleResponse{Handle: wire.Some(id)}, nil
}

func handleTreeBatchApply(sess *Session, req *protocol.BatchApplyRequest) (*protocol.TreeHandleResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}

	ops := make([]store.TreeOp, len(req.Ops))
	for i, op := range req.Ops {
		converted := store.TreeOp{Path: op.Path, Contents: op.Contents}
		switch op.Kind {
		case protocol.TreeOpAdd:
			converted.Kind = store.TreeOpAdd
		case protocol.TreeOpAddTree:
			converted.Kind = store.TreeOpAddTree
			sub, subOK := sess.trees.Get(op.Sub)
			if !subOK {
				return nil, ErrUnknownHandle
			}
			converted.Tree = sub
		case protocol.TreeOpRemove:
			converted.Kind = store.TreeOpRemove
		}
		ops[i] = converted
	}

	newTree, err := t.BatchApply(sess.repo, ops)
	if err != nil {
		return nil, err
	}
	id := sess.allocTree(newTree)
	return &protocol.TreeHandleResponse{Handle: wire.Some(id)}, nil
}

func handleTreeFind(sess *Session, req *protocol.TreePathRequest) (*protocol.FindResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	contents, found, err := t.Find(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	if !found {
		return &protocol.FindResponse{}, nil
	}
	return &protocol.FindResponse{Contents: wire.Some(contents)}, nil
}

func handleTreeMem(sess *Session, req *protocol.TreePathRequest) (*protocol.OkResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	found, err := t.Mem(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	return &protocol.OkResponse{Ok: found}, nil
}

func handleTreeMemTree(sess *Session, req *protocol.TreePathRequest) (*protocol.OkResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	found, err := t.MemTree(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	return &protocol.OkResponse{Ok: found}, nil
}

func handleTreeList(sess *Session, req *protocol.TreePathRequest) (*protocol.TreeListResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	entries, err := t.List(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	return &protocol.TreeListResponse{Entries: entries}, nil
}

func handleTreeHash(sess *Session, req *protocol.TreeHandleRequest) (*protocol.TreeHashResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	h, err := t.Hash(sess.repo)
	if err != nil {
		return nil, err
	}
	return &protocol.TreeHashResponse{Hash: h}, nil
}

func handleTreeKey(sess *Session, req *protocol.TreeHandleRequest) (*protocol.TreeKeyResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	k, err := t.Key(sess.repo)
	if err != nil {
		return nil, err
	}
	return &protocol.TreeKeyResponse{Key: k}, nil
}

func handleTreeToLocal(sess *Session, req *protocol.TreeHandleRequest) (*protocol.TreeToLocalResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	local, err := t.ToLocal(sess.repo)
	if err != nil {
		return nil, err
	}
	return &protocol.TreeToLocalResponse{Local: local}, nil
}

// handleTreeOfPath hydrates a handle to the subtree found at req.Path
// within the session's current branch tree (§4.7 "Of_path").
func handleTreeOfPath(sess *Session, req *protocol.PathRequest) (*protocol.TreeHandleResponse, error) {
	base, err := sess.currentTree(sess.branch)
	if err != nil {
		return nil, err
	}
	sub, ok, err := base.FindTree(sess.repo, req.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &protocol.TreeHandleResponse{}, nil
	}
	id := sess.allocTree(sub)
	return &protocol.TreeHandleResponse{Handle: wire.Some(id)}, nil
}

// handleTreeOfHash hydrates a handle from a bare node hash without
// requiring it to be reachable from any commit (§4.7 "Of_hash").
func handleTreeOfHash(sess *Session, req *protocol.OfHashRequest) (*protocol.TreeHandleResponse, error) {
	id := sess.allocTree(store.OfHash(req.Hash))
	return &protocol.TreeHandleResponse{Handle: wire.Some(id)}, nil
}

func handleTreeOfCommit(sess *Session, req *protocol.OfHashRequest) (*protocol.TreeHandleResponse, error) {
	t, err := store.OfCommit(sess.repo, req.Hash)
	if err != nil {
		return nil, err
	}
	id := sess.allocTree(t)
	return &protocol.TreeHandleResponse{Handle: wire.Some(id)}, nil
}

func handleTreeSave(sess *Session, req *protocol.TreeHandleRequest) (*protocol.TreeKeyResponse, error) {
	t, ok := sess.trees.Get(req.Tree)
	if !ok {
		return nil, ErrUnknownHandle
	}
	k, err := t.Save(sess.repo)
	if err != nil {
		return nil, err
	}
	return &protocol.TreeKeyResponse{Key: k}, nil
}

func handleTreeMerge(sess *Session, req *protocol.MergeRequest) (*protocol.MergeResponse, error) {
	base, ok := sess.trees.Get(req.Base)
	if !ok {
		return nil, ErrUnknownHandle
	}
	ours, ok := sess.trees.Get(req.Ours)
	if !ok {
		return nil, ErrUnknownHandle
	}
	theirs, ok := sess.trees.Get(req.Theirs)
	if !ok {
		return nil, ErrUnknownHandle
	}

	merged, conflict, err := store.Merge(sess.repo, base, ours, theirs)
	if err != nil {
		return nil, err
	}
	if conflict {
		return &protocol.MergeResponse{Conflict: true}, nil
	}
	id := sess.allocTree(merged)
	return &protocol.MergeResponse{Handle: id}, nil
}

func handleTreeCleanup(sess *Session, req *protocol.TreeHandleRequest) (*protocol.Unit, error) {
	sess.cleanupTree(req.Tree)
	return &protocol.Unit{}, nil
}

func handleTreeCleanupAll(sess *Session, _ *protocol.Unit) (*protocol.Unit, error) {
	sess.cleanupAllTrees()
	return &protocol.Unit{}, nil
}

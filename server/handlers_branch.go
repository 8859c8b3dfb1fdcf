package server

import (
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/wire"
)

func init() {
	register(protocol.CmdBranchSetCurrent, handleBranchSetCurrent)
	register(protocol.CmdBranchGetCurrent, handleBranchGetCurrent)
	register(protocol.CmdBranchHead, handleBranchHead)
	register(protocol.CmdBranchSetHead, handleBranchSetHead)
	register(protocol.CmdBranchRemove, handleBranchRemove)
}

// handleBranchSetCurrent updates session branch; the store-view is
// derived on demand so nothing further needs rebuilding (§4.7
// "Branch").
func handleBranchSetCurrent(sess *Session, req *protocol.SetCurrentBranchRequest) (*protocol.Unit, error) {
	sess.setBranch(req.Branch)
	return &protocol.Unit{}, nil
}

func handleBranchGetCurrent(sess *Session, _ *protocol.Unit) (*protocol.GetCurrentBranchResponse, error) {
	return &protocol.GetCurrentBranchResponse{Branch: sess.branch}, nil
}

// handleBranchHead returns the current commit of the named branch, or
// the session's branch if omitted.
func handleBranchHead(sess *Session, req *protocol.HeadRequest) (*protocol.HeadResponse, error) {
	branch := sess.branch
	if b, ok := req.Branch.Get(); ok {
		branch = b
	}
	h, ok := sess.currentHead(branch)
	if !ok {
		return &protocol.HeadResponse{}, nil
	}
	return &protocol.HeadResponse{Commit: wire.Some(h)}, nil
}

// handleBranchSetHead atomically points branch at commit (§4.7
// "Branch"), unconditionally overwriting whatever was there.
func handleBranchSetHead(sess *Session, req *protocol.SetHeadRequest) (*protocol.Unit, error) {
	branch := sess.branch
	if b, ok := req.Branch.Get(); ok {
		branch = b
	}
	if err := sess.repo.Branches.Set(branch, req.Commit); err != nil {
		return nil, err
	}
	return &protocol.Unit{}, nil
}

func handleBranchRemove(sess *Session, req *protocol.RemoveBranchRequest) (*protocol.Unit, error) {
	if err := sess.repo.Branches.Remove(req.Branch); err != nil {
		return nil, err
	}
	return &protocol.Unit{}, nil
}

package client

import (
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/protocol"
)

// Tree is the client-side pair (session_handle, server_identifier) of
// §4.6/§9: operations on it silently route requests back to its owning
// Client. Reusing a Tree after its Client has disconnected, or against
// a different Client, is a programming error and surfaces as
// ErrTreeForeignClient/ErrClientClosed on first use, never a panic.
type Tree struct {
	c      *Client
	handle int
}

func (t *Tree) checkOwner(c *Client) error {
	if t.c != c {
		return ErrTreeForeignClient
	}
	return nil
}

// Empty allocates a handle to a new empty tree.
func (c *Client) Empty() (*Tree, error) {
	resp, err := request[protocol.TreeHandleResponse](c, protocol.CmdTreeEmpty, &protocol.Unit{})
	if err != nil {
		return nil, err
	}
	id, _ := resp.Handle.Get()
	return &Tree{c: c, handle: id}, nil
}

// OfPath hydrates a handle to the subtree at path within the current
// branch tree.
func (c *Client) OfPath(path model.Path) (*Tree, bool, error) {
	resp, err := request[protocol.TreeHandleResponse](c, protocol.CmdTreeOfPath, &protocol.PathRequest{Path: path})
	if err != nil {
		return nil, false, err
	}
	id, ok := resp.Handle.Get()
	if !ok {
		return nil, false, nil
	}
	return &Tree{c: c, handle: id}, true, nil
}

// OfHash hydrates a handle from a bare node hash.
func (c *Client) OfHash(h hash.Hash) (*Tree, error) {
	resp, err := request[protocol.TreeHandleResponse](c, protocol.CmdTreeOfHash, &protocol.OfHashRequest{Hash: h})
	if err != nil {
		return nil, err
	}
	id, _ := resp.Handle.Get()
	return &Tree{c: c, handle: id}, nil
}

// OfCommit hydrates a handle to the tree referenced by a commit.
func (c *Client) OfCommit(commit hash.Hash) (*Tree, error) {
	resp, err := request[protocol.TreeHandleResponse](c, protocol.CmdTreeOfCommit, &protocol.OfHashRequest{Hash: commit})
	if err != nil {
		return nil, err
	}
	id, _ := resp.Handle.Get()
	return &Tree{c: c, handle: id}, nil
}

// Add returns a new handle to t with contents written at path; t
// itself remains valid (§4.7 "source handle remains valid").
func (t *Tree) Add(path model.Path, contents model.Contents) (*Tree, error) {
	resp, err := request[protocol.TreeHandleResponse](t.c, protocol.CmdTreeAdd, &protocol.TreeAddRequest{Tree: t.handle, Path: path, Contents: contents})
	if err != nil {
		return nil, err
	}
	id, _ := resp.Handle.Get()
	return &Tree{c: t.c, handle: id}, nil
}

// Remove returns a new handle to t with path deleted.
func (t *Tree) Remove(path model.Path) (*Tree, error) {
	resp, err := request[protocol.TreeHandleResponse](t.c, protocol.CmdTreeRemove, &protocol.TreeRemoveRequest{Tree: t.handle, Path: path})
	if err != nil {
		return nil, err
	}
	id, _ := resp.Handle.Get()
	return &Tree{c: t.c, handle: id}, nil
}

// AddTree returns a new handle to t with sub grafted at path.
func (t *Tree) AddTree(path model.Path, sub *Tree) (*Tree, error) {
	if err := sub.checkOwner(t.c); err != nil {
		return nil, err
	}
	resp, err := request[protocol.TreeHandleResponse](t.c, protocol.CmdTreeAddTree, &protocol.TreeAddTreeRequest{Tree: t.handle, Path: path, Sub: sub.handle})
	if err != nil {
		return nil, err
	}
	id, _ := resp.Handle.Get()
	return &Tree{c: t.c, handle: id}, nil
}

// Op is one step of a BatchApply call, mirroring protocol.TreeOp on
// the client side so callers need not import package protocol.
type Op struct {
	Kind     protocol.TreeOpKind
	Path     model.Path
	Contents model.Contents
	Sub      *Tree
}

// AddOp builds a Set-contents batch operation.
func AddOp(path model.Path, contents model.Contents) Op {
	return Op{Kind: protocol.TreeOpAdd, Path: path, Contents: contents}
}

// AddTreeOp builds a graft-subtree batch operation.
func AddTreeOp(path model.Path, sub *Tree) Op {
	return Op{Kind: protocol.TreeOpAddTree, Path: path, Sub: sub}
}

// RemoveOp builds a delete batch operation.
func RemoveOp(path model.Path) Op {
	return Op{Kind: protocol.TreeOpRemove, Path: path}
}

// BatchApply applies ops to t in one round-trip and returns a new
// handle to the result.
func (t *Tree) BatchApply(ops []Op) (*Tree, error) {
	wireOps := make([]protocol.TreeOp, len(ops))
	for i, op := range ops {
		wireOps[i] = protocol.TreeOp{Kind: op.Kind, Path: op.Path, Contents: op.Contents}
		if op.Sub != nil {
			if err := op.Sub.checkOwner(t.c); err != nil {
				return nil, err
			}
			wireOps[i].Sub = op.Sub.handle
		}
	}
	resp, err := request[protocol.TreeHandleResponse](t.c, protocol.CmdTreeBatchApply, &protocol.BatchApplyRequest{Tree: t.handle, Ops: wireOps})
	if err != nil {
		return nil, err
	}
	id, _ := resp.Handle.Get()
	return &Tree{c: t.c, handle: id}, nil
}

// Find returns the contents at path within t.
func (t *Tree) Find(path model.Path) (model.Contents, bool, error) {
	resp, err := request[protocol.FindResponse](t.c, protocol.CmdTreeFind, &protocol.TreePathRequest{Tree: t.handle, Path: path})
	if err != nil {
		return nil, false, err
	}
	v, ok := resp.Contents.Get()
	return v, ok, nil
}

// Mem reports whether path addresses contents within t.
func (t *Tree) Mem(path model.Path) (bool, error) {
	resp, err := request[protocol.OkResponse](t.c, protocol.CmdTreeMem, &protocol.TreePathRequest{Tree: t.handle, Path: path})
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

// MemTree reports whether path addresses a subtree within t.
func (t *Tree) MemTree(path model.Path) (bool, error) {
	resp, err := request[protocol.OkResponse](t.c, protocol.CmdTreeMemTree, &protocol.TreePathRequest{Tree: t.handle, Path: path})
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

// List enumerates the immediate children at path within t.
func (t *Tree) List(path model.Path) ([]model.ListEntry, error) {
	resp, err := request[protocol.TreeListResponse](t.c, protocol.CmdTreeList, &protocol.TreePathRequest{Tree: t.handle, Path: path})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Hash materializes t's content hash.
func (t *Tree) Hash() (hash.Hash, error) {
	resp, err := request[protocol.TreeHashResponse](t.c, protocol.CmdTreeHash, &protocol.TreeHandleRequest{Tree: t.handle})
	if err != nil {
		return hash.Hash{}, err
	}
	return resp.Hash, nil
}

// Key materializes t's kinded storage key.
func (t *Tree) Key() (model.Key, error) {
	resp, err := request[protocol.TreeKeyResponse](t.c, protocol.CmdTreeKey, &protocol.TreeHandleRequest{Tree: t.handle})
	if err != nil {
		return model.Key{}, err
	}
	return resp.Key, nil
}

// ToLocal fully materializes t as a client-side value.
func (t *Tree) ToLocal() (*model.LocalTree, error) {
	resp, err := request[protocol.TreeToLocalResponse](t.c, protocol.CmdTreeToLocal, &protocol.TreeHandleRequest{Tree: t.handle})
	if err != nil {
		return nil, err
	}
	return resp.Local, nil
}

// Save persists t and returns its key.
func (t *Tree) Save() (model.Key, error) {
	resp, err := request[protocol.TreeKeyResponse](t.c, protocol.CmdTreeSave, &protocol.TreeHandleRequest{Tree: t.handle})
	if err != nil {
		return model.Key{}, err
	}
	return resp.Key, nil
}

// Merge performs a three-way merge of ours and theirs against base; a
// conflict is reported rather than returned as an error (§4.7 "Merge",
// "conflict is a recoverable error" is realized here as an ok result
// with Conflict=true, matching how Test_and_set's own CAS-failure is
// surfaced as an ok-false result rather than an error frame).
func Merge(base, ours, theirs *Tree) (merged *Tree, conflict bool, err error) {
	c := base.c
	if err := ours.checkOwner(c); err != nil {
		return nil, false, err
	}
	if err := theirs.checkOwner(c); err != nil {
		return nil, false, err
	}
	resp, err := request[protocol.MergeResponse](c, protocol.CmdTreeMerge, &protocol.MergeRequest{Base: base.handle, Ours: ours.handle, Theirs: theirs.handle})
	if err != nil {
		return nil, false, err
	}
	if resp.Conflict {
		return nil, true, nil
	}
	return &Tree{c: c, handle: resp.Handle}, false, nil
}

// Cleanup releases t's handle (§4.6 "Abort/Cleanup release a handle").
func (t *Tree) Cleanup() error {
	_, err := request[protocol.Unit](t.c, protocol.CmdTreeCleanup, &protocol.TreeHandleRequest{Tree: t.handle})
	return err
}

// CleanupAll releases every handle held by c's session.
func (c *Client) CleanupAll() error {
	_, err := request[protocol.Unit](c, protocol.CmdTreeCleanupAll, &protocol.Unit{})
	return err
}

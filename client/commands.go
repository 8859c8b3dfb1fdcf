package client

import (
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/wire"
)

// Ping is side-effect-free (§4.7 "Connectivity").
func (c *Client) Ping() error {
	_, err := request[protocol.Unit](c, protocol.CmdPing, &protocol.Unit{})
	return err
}

// SetCurrentBranch updates the session's current branch.
func (c *Client) SetCurrentBranch(branch model.BranchName) error {
	_, err := request[protocol.Unit](c, protocol.CmdBranchSetCurrent, &protocol.SetCurrentBranchRequest{Branch: branch})
	return err
}

// GetCurrentBranch returns the session's current branch.
func (c *Client) GetCurrentBranch() (model.BranchName, error) {
	resp, err := request[protocol.GetCurrentBranchResponse](c, protocol.CmdBranchGetCurrent, &protocol.Unit{})
	if err != nil {
		return "", err
	}
	return resp.Branch, nil
}

// Head returns the current commit of branch, or the session's branch
// if branch is the zero value.
func (c *Client) Head(branch model.BranchName) (hash.Hash, bool, error) {
	req := &protocol.HeadRequest{}
	if branch != "" {
		req.Branch = wire.Some(branch)
	}
	resp, err := request[protocol.HeadResponse](c, protocol.CmdBranchHead, req)
	if err != nil {
		return hash.Hash{}, false, err
	}
	h, ok := resp.Commit.Get()
	return h, ok, nil
}

// SetHead atomically points branch (or the session's branch, if empty)
// at commit.
func (c *Client) SetHead(branch model.BranchName, commit hash.Hash) error {
	req := &protocol.SetHeadRequest{Commit: commit}
	if branch != "" {
		req.Branch = wire.Some(branch)
	}
	_, err := request[protocol.Unit](c, protocol.CmdBranchSetHead, req)
	return err
}

// RemoveBranch removes branch's mapping.
func (c *Client) RemoveBranch(branch model.BranchName) error {
	_, err := request[protocol.Unit](c, protocol.CmdBranchRemove, &protocol.RemoveBranchRequest{Branch: branch})
	return err
}

// Find returns the contents at path on the current branch.
func (c *Client) Find(path model.Path) (model.Contents, bool, error) {
	resp, err := request[protocol.FindResponse](c, protocol.CmdStoreFind, &protocol.PathRequest{Path: path})
	if err != nil {
		return nil, false, err
	}
	v, ok := resp.Contents.Get()
	return v, ok, nil
}

// Mem reports whether path addresses contents on the current branch.
func (c *Client) Mem(path model.Path) (bool, error) {
	resp, err := request[protocol.OkResponse](c, protocol.CmdStoreMem, &protocol.PathRequest{Path: path})
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

// MemTree reports whether path addresses a subtree on the current branch.
func (c *Client) MemTree(path model.Path) (bool, error) {
	resp, err := request[protocol.OkResponse](c, protocol.CmdStoreMemTree, &protocol.PathRequest{Path: path})
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

// FindTree returns a handle to the subtree at path on the current
// branch, if any.
func (c *Client) FindTree(path model.Path) (*Tree, bool, error) {
	resp, err := request[protocol.TreeHandleResponse](c, protocol.CmdStoreFindTree, &protocol.PathRequest{Path: path})
	if err != nil {
		return nil, false, err
	}
	id, ok := resp.Handle.Get()
	if !ok {
		return nil, false, nil
	}
	return &Tree{c: c, handle: id}, true, nil
}

// Set writes contents at path on the current branch, producing a new
// commit with info as its metadata (§4.7 "Store").
func (c *Client) Set(path model.Path, info model.Info, contents model.Contents) error {
	_, err := request[protocol.Unit](c, protocol.CmdStoreSet, &protocol.SetRequest{Path: path, Info: info, Contents: contents})
	return err
}

// SetTree grafts tree at path on the current branch.
func (c *Client) SetTree(path model.Path, info model.Info, tree *Tree) error {
	if err := tree.checkOwner(c); err != nil {
		return err
	}
	_, err := request[protocol.Unit](c, protocol.CmdStoreSetTree, &protocol.SetTreeRequest{Path: path, Info: info, Tree: tree.handle})
	return err
}

// Remove deletes path on the current branch.
func (c *Client) Remove(path model.Path, info model.Info) error {
	_, err := request[protocol.Unit](c, protocol.CmdStoreRemove, &protocol.RemoveRequest{Path: path, Info: info})
	return err
}

// TestAndSet performs the atomic compare-and-swap of §4.7/§8 invariant
// 5: it succeeds iff the prior value at path matched test exactly, and
// never retries on mismatch.
func (c *Client) TestAndSet(path model.Path, info model.Info, test, set *model.Contents) (bool, error) {
	req := &protocol.TestAndSetRequest{Path: path, Info: info}
	if test != nil {
		req.Test = wire.Some(*test)
	}
	if set != nil {
		req.Set = wire.Some(*set)
	}
	resp, err := request[protocol.OkResponse](c, protocol.CmdStoreTestAndSet, req)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

// TestAndSetTree is TestAndSet for tree-valued paths.
func (c *Client) TestAndSetTree(path model.Path, info model.Info, test, set *Tree) (bool, error) {
	req := &protocol.TestAndSetTreeRequest{Path: path, Info: info}
	if test != nil {
		if err := test.checkOwner(c); err != nil {
			return false, err
		}
		req.Test = wire.Some(test.handle)
	}
	if set != nil {
		if err := set.checkOwner(c); err != nil {
			return false, err
		}
		req.Set = wire.Some(set.handle)
	}
	resp, err := request[protocol.OkResponse](c, protocol.CmdStoreTestAndSetTree, req)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

// NewCommit writes a commit referencing tree and returns its hash
// (§4.7 "Repo").
func (c *Client) NewCommit(info model.Info, parents []hash.Hash, tree hash.Hash) (hash.Hash, error) {
	resp, err := request[protocol.NewCommitResponse](c, protocol.CmdRepoNewCommit, &protocol.NewCommitRequest{Info: info, Parents: parents, Tree: tree})
	if err != nil {
		return hash.Hash{}, err
	}
	return resp.Commit, nil
}

// Export streams a slice of the object graph reachable from the
// current branch head, at most depth commits deep if depth > 0.
func (c *Client) Export(depth int) (model.Slice, error) {
	req := &protocol.ExportRequest{}
	if depth > 0 {
		req.Depth = wire.Some(depth)
	}
	resp, err := request[protocol.ExportResponse](c, protocol.CmdRepoExport, req)
	if err != nil {
		return model.Slice{}, err
	}
	return resp.Slice, nil
}

// Import ingests a slice previously produced by Export.
func (c *Client) Import(slice model.Slice) error {
	_, err := request[protocol.Unit](c, protocol.CmdRepoImport, &protocol.ImportRequest{Slice: slice})
	return err
}

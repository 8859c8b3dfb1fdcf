package client

import (
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/wire"
)

// ObjectStoreClient is the client-side view of one of the three
// backend passthrough object kinds (§4.7 "Backend passthrough"):
// Contents, Node, and Commit share this single set of operations,
// bound to distinct command names at construction.
type ObjectStoreClient struct {
	c                                          *Client
	memName, findName, addName, unsafeAddName string
	indexName, mergeName                      string
}

func newObjectStoreClient(c *Client, mem, find, add, unsafeAdd, index, merge string) *ObjectStoreClient {
	return &ObjectStoreClient{c: c, memName: mem, findName: find, addName: add, unsafeAddName: unsafeAdd, indexName: index, mergeName: merge}
}

// Contents is the backend passthrough for the contents object store.
func (c *Client) Contents() *ObjectStoreClient {
	return newObjectStoreClient(c, protocol.CmdContentsMem, protocol.CmdContentsFind, protocol.CmdContentsAdd,
		protocol.CmdContentsUnsafeAdd, protocol.CmdContentsIndex, protocol.CmdContentsMerge)
}

// Node is the backend passthrough for the node object store.
func (c *Client) Node() *ObjectStoreClient {
	return newObjectStoreClient(c, protocol.CmdNodeMem, protocol.CmdNodeFind, protocol.CmdNodeAdd,
		protocol.CmdNodeUnsafeAdd, protocol.CmdNodeIndex, protocol.CmdNodeMerge)
}

// Commit is the backend passthrough for the commit object store.
func (c *Client) Commit() *ObjectStoreClient {
	return newObjectStoreClient(c, protocol.CmdCommitMem, protocol.CmdCommitFind, protocol.CmdCommitAdd,
		protocol.CmdCommitUnsafeAdd, protocol.CmdCommitIndex, protocol.CmdCommitMerge)
}

func (o *ObjectStoreClient) Mem(h hash.Hash) (bool, error) {
	resp, err := request[protocol.OkResponse](o.c, o.memName, &protocol.HashRequest{Hash: h})
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (o *ObjectStoreClient) Find(h hash.Hash) ([]byte, bool, error) {
	resp, err := request[protocol.DataResponse](o.c, o.findName, &protocol.HashRequest{Hash: h})
	if err != nil {
		return nil, false, err
	}
	v, ok := resp.Data.Get()
	return v, ok, nil
}

func (o *ObjectStoreClient) Add(data []byte) (hash.Hash, error) {
	resp, err := request[protocol.HashResponse](o.c, o.addName, &protocol.AddDataRequest{Data: data})
	if err != nil {
		return hash.Hash{}, err
	}
	return resp.Hash, nil
}

// UnsafeAdd bypasses hash verification (§9 open question #3): callers
// must have already verified h is the correct digest of data.
func (o *ObjectStoreClient) UnsafeAdd(h hash.Hash, data []byte) error {
	_, err := request[protocol.Unit](o.c, o.unsafeAddName, &protocol.UnsafeAddRequest{Hash: h, Data: data})
	return err
}

func (o *ObjectStoreClient) Index() ([]hash.Hash, error) {
	resp, err := request[protocol.IndexResponse](o.c, o.indexName, &protocol.Unit{})
	if err != nil {
		return nil, err
	}
	return resp.Hashes, nil
}

func (o *ObjectStoreClient) Merge(base, ours, theirs hash.Hash) (hash.Hash, bool, error) {
	resp, err := request[protocol.MergeHashResponse](o.c, o.mergeName, &protocol.MergeHashRequest{Base: base, Ours: ours, Theirs: theirs})
	if err != nil {
		return hash.Hash{}, false, err
	}
	return resp.Hash, resp.Conflict, nil
}

// BranchStoreClient is the client-side view of the branch registry
// passthrough (§4.7 "For Branch").
type BranchStoreClient struct {
	c *Client
}

// Branches is the backend passthrough for the branch registry.
func (c *Client) Branches() *BranchStoreClient {
	return &BranchStoreClient{c: c}
}

func (b *BranchStoreClient) Mem(name model.BranchName) (bool, error) {
	resp, err := request[protocol.OkResponse](b.c, protocol.CmdBranchStoreMem, &protocol.BranchNameRequest{Branch: name})
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (b *BranchStoreClient) Find(name model.BranchName) (hash.Hash, bool, error) {
	resp, err := request[protocol.BranchCommitResponse](b.c, protocol.CmdBranchStoreFind, &protocol.BranchNameRequest{Branch: name})
	if err != nil {
		return hash.Hash{}, false, err
	}
	h, ok := resp.Commit.Get()
	return h, ok, nil
}

func (b *BranchStoreClient) Set(name model.BranchName, commit hash.Hash) error {
	_, err := request[protocol.Unit](b.c, protocol.CmdBranchStoreSet, &protocol.BranchSetRequest{Branch: name, Commit: commit})
	return err
}

func (b *BranchStoreClient) TestAndSet(name model.BranchName, test, set *hash.Hash) (bool, error) {
	req := &protocol.BranchTestAndSetRequest{Branch: name}
	if test != nil {
		req.Test = wire.Some(*test)
	}
	if set != nil {
		req.Set = wire.Some(*set)
	}
	resp, err := request[protocol.OkResponse](b.c, protocol.CmdBranchStoreTestAndSet, req)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (b *BranchStoreClient) Remove(name model.BranchName) error {
	_, err := request[protocol.Unit](b.c, protocol.CmdBranchStoreRemove, &protocol.BranchNameRequest{Branch: name})
	return err
}

func (b *BranchStoreClient) List() ([]model.BranchName, error) {
	resp, err := request[protocol.BranchListResponse](b.c, protocol.CmdBranchStoreList, &protocol.Unit{})
	if err != nil {
		return nil, err
	}
	return resp.Branches, nil
}

func (b *BranchStoreClient) Clear() error {
	_, err := request[protocol.Unit](b.c, protocol.CmdBranchStoreClear, &protocol.Unit{})
	return err
}

// Watch installs the session's branch-level watch; notifications flow
// to the callback registered via Client.OnNotification (§4.7 "at most
// one of each per session").
func (b *BranchStoreClient) Watch() error {
	_, err := request[protocol.Unit](b.c, protocol.CmdBranchStoreWatch, &protocol.Unit{})
	return err
}

// WatchKey installs the session's single-branch watch.
func (b *BranchStoreClient) WatchKey(name model.BranchName) error {
	_, err := request[protocol.Unit](b.c, protocol.CmdBranchStoreWatchKey, &protocol.BranchWatchKeyRequest{Branch: name})
	return err
}

// Unwatch tears down both watch kinds.
func (b *BranchStoreClient) Unwatch() error {
	_, err := request[protocol.Unit](b.c, protocol.CmdBranchStoreUnwatch, &protocol.Unit{})
	return err
}

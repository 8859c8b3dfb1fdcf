package protocol

import (
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/wire"
)

// Command names (§4.7, §6): lowercase, dotted by the object kind or
// subsystem they operate on. These strings are part of the wire
// protocol; once shipped they must never be renamed, only added to.
const (
	CmdPing = "ping"

	CmdBranchSetCurrent = "branch.set_current"
	CmdBranchGetCurrent = "branch.get_current"
	CmdBranchHead       = "branch.head"
	CmdBranchSetHead    = "branch.set_head"
	CmdBranchRemove     = "branch.remove"

	CmdStoreFind             = "store.find"
	CmdStoreMem              = "store.mem"
	CmdStoreMemTree          = "store.mem_tree"
	CmdStoreFindTree         = "store.find_tree"
	CmdStoreSet              = "store.set"
	CmdStoreSetTree          = "store.set_tree"
	CmdStoreRemove           = "store.remove"
	CmdStoreTestAndSet       = "store.test_and_set"
	CmdStoreTestAndSetTree   = "store.test_and_set_tree"

	CmdTreeEmpty      = "tree.empty"
	CmdTreeAdd        = "tree.add"
	CmdTreeRemove     = "tree.remove"
	CmdTreeAddTree    = "tree.add_tree"
	CmdTreeBatchApply = "tree.batch_apply"
	CmdTreeFind       = "tree.find"
	CmdTreeMem        = "tree.mem"
	CmdTreeMemTree    = "tree.mem_tree"
	CmdTreeList       = "tree.list"
	CmdTreeHash       = "tree.hash"
	CmdTreeKey        = "tree.key"
	CmdTreeToLocal    = "tree.to_local"
	CmdTreeOfPath     = "tree.of_path"
	CmdTreeOfHash     = "tree.of_hash"
	CmdTreeOfCommit   = "tree.of_commit"
	CmdTreeSave       = "tree.save"
	CmdTreeMerge      = "tree.merge"
	CmdTreeCleanup    = "tree.cleanup"
	CmdTreeCleanupAll = "tree.cleanup_all"

	CmdRepoExport    = "repo.export"
	CmdRepoImport    = "repo.import"
	CmdRepoNewCommit = "repo.new_commit"

	CmdContentsMem       = "contents.mem"
	CmdContentsFind      = "contents.find"
	CmdContentsAdd       = "contents.add"
	CmdContentsUnsafeAdd = "contents.unsafe_add"
	CmdContentsIndex     = "contents.index"
	CmdContentsMerge     = "contents.merge"

	CmdNodeMem       = "node.mem"
	CmdNodeFind      = "node.find"
	CmdNodeAdd       = "node.add"
	CmdNodeUnsafeAdd = "node.unsafe_add"
	CmdNodeIndex     = "node.index"
	CmdNodeMerge     = "node.merge"

	CmdCommitMem       = "commit.mem"
	CmdCommitFind      = "commit.find"
	CmdCommitAdd       = "commit.add"
	CmdCommitUnsafeAdd = "commit.unsafe_add"
	CmdCommitIndex     = "commit.index"
	CmdCommitMerge     = "commit.merge"

	CmdBranchStoreMem         = "branch_store.mem"
	CmdBranchStoreFind        = "branch_store.find"
	CmdBranchStoreSet         = "branch_store.set"
	CmdBranchStoreTestAndSet  = "branch_store.test_and_set"
	CmdBranchStoreRemove      = "branch_store.remove"
	CmdBranchStoreList        = "branch_store.list"
	CmdBranchStoreClear       = "branch_store.clear"
	CmdBranchStoreWatch       = "branch_store.watch"
	CmdBranchStoreWatchKey    = "branch_store.watch_key"
	CmdBranchStoreUnwatch     = "branch_store.unwatch"
)

// Unit is the request/response body for commands with no payload
// (§4.7 Ping is "request unit, response unit").
type Unit struct{}

// --- Branch (§4.7 "Branch") ---

type SetCurrentBranchRequest struct {
	Branch model.BranchName
}

type GetCurrentBranchResponse struct {
	Branch model.BranchName
}

type HeadRequest struct {
	Branch wire.Option[model.BranchName]
}

type HeadResponse struct {
	Commit wire.Option[hash.Hash]
}

type SetHeadRequest struct {
	Branch wire.Option[model.BranchName]
	Commit hash.Hash
}

type RemoveBranchRequest struct {
	Branch model.BranchName
}

// --- Store on current branch (§4.7 "Store") ---

type PathRequest struct {
	Path model.Path
}

type FindResponse struct {
	Contents wire.Option[model.Contents]
}

type OkResponse struct {
	Ok bool
}

type TreeHandleResponse struct {
	Handle wire.Option[int]
}

type SetRequest struct {
	Path     model.Path
	Info     model.Info
	Contents model.Contents
}

type SetTreeRequest struct {
	Path model.Path
	Info model.Info
	Tree int
}

type RemoveRequest struct {
	Path model.Path
	Info model.Info
}

type TestAndSetRequest struct {
	Path model.Path
	Info model.Info
	Test wire.Option[model.Contents]
	Set  wire.Option[model.Contents]
}

type TestAndSetTreeRequest struct {
	Path model.Path
	Info model.Info
	Test wire.Option[int]
	Set  wire.Option[int]
}

// --- Tree (§4.7 "Tree") ---

type TreeHandleRequest struct {
	Tree int
}

type TreeAddRequest struct {
	Tree     int
	Path     model.Path
	Contents model.Contents
}

type TreeRemoveRequest struct {
	Tree int
	Path model.Path
}

type TreeAddTreeRequest struct {
	Tree int
	Path model.Path
	Sub  int
}

// TreeOpKind mirrors store.TreeOpKind on the wire; kept as a distinct
// type so protocol never imports package store.
type TreeOpKind uint8

const (
	TreeOpAdd TreeOpKind = iota
	TreeOpAddTree
	TreeOpRemove
)

type TreeOp struct {
	Kind     TreeOpKind
	Path     model.Path
	Contents model.Contents
	Sub      int
}

type BatchApplyRequest struct {
	Tree int
	Ops  []TreeOp
}

type TreePathRequest struct {
	Tree int
	Path model.Path
}

type TreeListResponse struct {
	Entries []model.ListEntry
}

type TreeHashResponse struct {
	Hash hash.Hash
}

type TreeKeyResponse struct {
	Key model.Key
}

type TreeToLocalResponse struct {
	Local *model.LocalTree
}

type OfHashRequest struct {
	Hash hash.Hash
}

type MergeRequest struct {
	Base   int
	Ours   int
	Theirs int
}

type MergeResponse struct {
	Handle   int
	Conflict bool
}

// --- Repo (§4.7 "Repo") ---

type ExportRequest struct {
	Depth wire.Option[int]
}

type ExportResponse struct {
	Slice model.Slice
}

type ImportRequest struct {
	Slice model.Slice
}

type NewCommitRequest struct {
	Info    model.Info
	Parents []hash.Hash
	Tree    hash.Hash
}

type NewCommitResponse struct {
	Commit hash.Hash
}

// --- Backend passthrough (§4.7 "Backend passthrough") ---
// Shared by the contents, node, and commit object kinds; each kind
// registers its own command name bound to the same request/response
// shapes, matching the ObjectStore interface's mem/find/add/unsafe_add
// /index/merge operations in package store.

type HashRequest struct {
	Hash hash.Hash
}

type DataResponse struct {
	Data wire.Option[[]byte]
}

type AddDataRequest struct {
	Data []byte
}

type HashResponse struct {
	Hash hash.Hash
}

type UnsafeAddRequest struct {
	Hash hash.Hash
	Data []byte
}

type IndexResponse struct {
	Hashes []hash.Hash
}

type MergeHashRequest struct {
	Base   hash.Hash
	Ours   hash.Hash
	Theirs hash.Hash
}

type MergeHashResponse struct {
	Hash     hash.Hash
	Conflict bool
}

// --- Branch registry passthrough (§4.7 "For Branch") ---

type BranchNameRequest struct {
	Branch model.BranchName
}

type BranchCommitResponse struct {
	Commit wire.Option[hash.Hash]
}

type BranchSetRequest struct {
	Branch model.BranchName
	Commit hash.Hash
}

type BranchTestAndSetRequest struct {
	Branch model.BranchName
	Test   wire.Option[hash.Hash]
	Set    wire.Option[hash.Hash]
}

type BranchListResponse struct {
	Branches []model.BranchName
}

type BranchWatchKeyRequest struct {
	Branch model.BranchName
}

// WatchNotification is the payload of an asynchronous status=2 frame
// (§6): a tagged variant distinguishing a branch-level watch event from
// a single-key watch event, carrying the updated BranchEvent fields.
type WatchNotification struct {
	Keyed  bool
	Branch model.BranchName
	Commit wire.Option[hash.Hash]
}

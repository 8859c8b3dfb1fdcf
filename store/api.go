// Package store defines the backend object graph that the protocol
// core treats as an opaque collaborator (§1): three content-addressed
// object stores (contents, nodes, commits) plus a branch registry, and
// the Tree manipulation logic layered on top of them. Two concrete
// backends are provided: an in-memory one (used by the testable
// scenarios, which specify "backend = in-memory store") and a
// persistent one split across badger (bulk, immutable objects) and
// bbolt (the small, frequently compare-and-swapped branch registry),
// grounded on the NodeDB split in the teacher's storage/mkvs/db
// package.
package store

import (
	"github.com/icristescu/irmin-server/common/pubsub"
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
)

// ObjectStore is the append-only, content-addressed store shared by
// the contents, node, and commit object kinds (§1, §3 invariants).
type ObjectStore interface {
	// Mem reports whether h is present.
	Mem(h hash.Hash) bool

	// Find looks up the value stored under h.
	Find(h hash.Hash) ([]byte, bool)

	// Add computes the content hash of data, stores it, and returns the
	// derived key. Two adds of equal values return equal keys.
	Add(data []byte) hash.Hash

	// UnsafeAdd stores data under a caller-supplied hash without
	// verifying it, trusting the caller has already done so.
	UnsafeAdd(h hash.Hash, data []byte) error

	// Index enumerates all keys currently in the store, in ascending
	// order.
	Index() []hash.Hash

	// Merge performs a three-way merge of the values at base/ours/theirs
	// and returns the merged key, or reports a conflict.
	Merge(base, ours, theirs hash.Hash) (result hash.Hash, conflict bool, err error)
}

// BranchEvent is broadcast on the branch-level watch broker whenever
// any branch is updated, and on a key-specific watch when that branch
// is updated.
type BranchEvent struct {
	Branch model.BranchName
	Commit hash.Hash
	Live   bool // false when the branch was removed
}

// BranchStore is the branch-name registry: each name maps to at most
// one commit key at any instant, and updates are atomic (§3).
type BranchStore interface {
	Mem(name model.BranchName) bool
	Find(name model.BranchName) (hash.Hash, bool)

	// Set atomically points name at commit.
	Set(name model.BranchName, commit hash.Hash) error

	// TestAndSet performs an atomic compare-and-swap: it succeeds iff
	// the current value matches test exactly (an absent test matches an
	// absent branch). set absent means "remove".
	TestAndSet(name model.BranchName, test wireOption, set wireOption) (bool, error)

	Remove(name model.BranchName) error
	List() []model.BranchName
	Clear() error

	// Watch subscribes to every branch update.
	Watch() *pubsub.Subscription
	// WatchKey subscribes to updates of a single branch.
	WatchKey(name model.BranchName) *pubsub.Subscription
}

// wireOption mirrors wire.Option[hash.Hash] without importing package
// wire from package store (store is a lower layer than wire in the
// dependency graph); server adapts between the two at the handler
// boundary.
type wireOption struct {
	Present bool
	Value   hash.Hash
}

// Some constructs a present wireOption.
func Some(h hash.Hash) wireOption { return wireOption{Present: true, Value: h} }

// None constructs an absent wireOption.
func None() wireOption { return wireOption{} }

// Repo is the process-lifetime, shared collection of all objects (§3).
type Repo struct {
	Contents ObjectStore
	Nodes    ObjectStore
	Commits  ObjectStore
	Branches BranchStore

	DefaultBranch model.BranchName
}

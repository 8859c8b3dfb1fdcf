package model

import "github.com/icristescu/irmin-server/hash"

// Slice is a transient, request-scoped bulk-transfer payload
// representing a subset of the object graph, used by Repo's
// Export/Import commands. It is a flat bag of objects keyed by kind and
// hash rather than a tree, since export/import need not preserve the
// DAG's internal pointer structure — only enough objects that Import
// can re-derive it on the receiving repo.
type Slice struct {
	Contents []SliceEntry
	Nodes    []SliceEntry
	Commits  []SliceEntry
}

// SliceEntry is one object carried in a Slice.
type SliceEntry struct {
	Hash hash.Hash
	Data []byte
}

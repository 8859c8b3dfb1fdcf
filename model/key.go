package model

import "github.com/icristescu/irmin-server/hash"

// Kind identifies which of the three object stores a Key addresses.
type Kind uint8

const (
	// KindContents addresses the contents store.
	KindContents Kind = iota
	// KindNode addresses the node (tree) store.
	KindNode
	// KindCommit addresses the commit store.
	KindCommit
)

func (k Kind) String() string {
	switch k {
	case KindContents:
		return "contents"
	case KindNode:
		return "node"
	case KindCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// Key is a kinded reference to a stored object: a hash plus which
// object store it was produced by. Save and Key report kinded keys, and
// List reports each child's Kind, so a client can tell a leaf contents
// blob from a subtree node without a round-trip.
type Key struct {
	Kind Kind
	Hash hash.Hash
}

package store

import "github.com/icristescu/irmin-server/common/errors"

const moduleName = "store"

var (
	// ErrNotFound is returned when a key is absent from an object store.
	ErrNotFound = errors.New(moduleName, 1, "store: key not found")
	// ErrConflict is returned when a structural three-way merge cannot be
	// resolved automatically.
	ErrConflict = errors.New(moduleName, 2, "store: merge conflict")
	// ErrNotANode is returned when a hash expected to address a node
	// does not decode as one.
	ErrNotANode = errors.New(moduleName, 3, "store: key does not address a node")
	// ErrBranchNotFound is returned when a branch name has no mapping.
	ErrBranchNotFound = errors.New(moduleName, 4, "store: branch not found")
)

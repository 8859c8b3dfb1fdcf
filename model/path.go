// Package model defines the pure, immutable domain values of the
// store: paths, contents, branch names, commits, and object keys. Tree
// manipulation itself lives in package store since it must dereference
// against the backend object graph.
package model

import "strings"

// Path is an ordered sequence of name steps into a tree.
type Path []string

// PathOf builds a Path from individual steps.
func PathOf(steps ...string) Path {
	p := make(Path, len(steps))
	copy(p, steps)
	return p
}

// ParsePath splits a "/"-joined string into a Path. An empty string is
// the empty (root) path.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return Path(strings.Split(s, "/"))
}

// String renders the path "/"-joined, for logging.
func (p Path) String() string {
	return strings.Join(p, "/")
}

// Equal compares two paths componentwise.
func (p Path) Equal(cmp Path) bool {
	if len(p) != len(cmp) {
		return false
	}
	for i := range p {
		if p[i] != cmp[i] {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the path names the tree root.
func (p Path) IsEmpty() bool {
	return len(p) == 0
}

// Head returns the first step and the remaining path.
func (p Path) Head() (string, Path) {
	return p[0], p[1:]
}

// Append returns a new path with step appended.
func (p Path) Append(step string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = step
	return out
}

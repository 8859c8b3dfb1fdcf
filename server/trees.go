package server

import "github.com/icristescu/irmin-server/store"

// handleTable is the per-session tree handle manager (§4.6): a
// monotonic int-keyed table of server-resident trees. Allocation is
// never reused within a session's lifetime, so a stale client-held
// identifier can never silently resolve to an unrelated tree.
type handleTable struct {
	next int
	m    map[int]*store.Tree
}

func newHandleTable() *handleTable {
	return &handleTable{m: make(map[int]*store.Tree)}
}

// Alloc inserts t under a freshly minted identifier and returns it.
func (h *handleTable) Alloc(t *store.Tree) int {
	id := h.next
	h.next++
	h.m[id] = t
	return id
}

// Get dereferences id, reporting false if it is absent (§4.6 "clients
// must never manufacture identifiers").
func (h *handleTable) Get(id int) (*store.Tree, bool) {
	t, ok := h.m[id]
	return t, ok
}

// Cleanup drops a single entry.
func (h *handleTable) Cleanup(id int) {
	delete(h.m, id)
}

// CleanupAll drops every entry, used both by the explicit
// tree.cleanup_all command and on session termination.
func (h *handleTable) CleanupAll() {
	h.m = make(map[int]*store.Tree)
}

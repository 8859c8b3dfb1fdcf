package server

import (
	"time"

	"go.uber.org/atomic"

	"github.com/icristescu/irmin-server/common/logging"
	"github.com/icristescu/irmin-server/common/pubsub"
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/store"
	"github.com/icristescu/irmin-server/wire"
)

var nextSessionID atomic.Uint64

// Session is the per-connection state of §3/§4.5: current branch, the
// tree-handle table, and at most one of each watch kind. It is mutated
// only by its own dispatch loop goroutine — no field is ever touched
// concurrently, matching §4.5's "strictly single-threaded internally".
type Session struct {
	id      uint64
	conn    *protocol.Conn
	repo    *store.Repo
	logger  *logging.Logger
	metrics *serverMetrics

	branch model.BranchName
	trees  *handleTable

	watchAll *pubsub.Subscription
	watchKey *pubsub.Subscription
}

func newSession(conn *protocol.Conn, repo *store.Repo, logger *logging.Logger, metrics *serverMetrics) *Session {
	return &Session{
		id:      nextSessionID.Inc(),
		conn:    conn,
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		branch:  repo.DefaultBranch,
		trees:   newHandleTable(),
	}
}

// allocTree registers t in the session's handle table and reports the
// new handle count to metrics (SPEC_FULL.md §4.10
// irmin_tree_handles_active).
func (s *Session) allocTree(t *store.Tree) int {
	id := s.trees.Alloc(t)
	s.metrics.handleAllocated()
	return id
}

// cleanupTree releases a single handle.
func (s *Session) cleanupTree(id int) {
	if _, ok := s.trees.Get(id); ok {
		s.trees.Cleanup(id)
		s.metrics.handleReleased(1)
	}
}

// cleanupAllTrees releases every handle held by this session.
func (s *Session) cleanupAllTrees() {
	n := len(s.trees.m)
	s.trees.CleanupAll()
	s.metrics.handleReleased(n)
}

// close releases every session-scoped resource (§4.5, §4.6: "session
// termination drops the entire table"; §4.7 Branch Watch/Watch_key are
// likewise tied to the session).
func (s *Session) close() {
	s.cleanupAllTrees()
	if s.watchAll != nil {
		s.watchAll.Close()
		s.watchAll = nil
	}
	if s.watchKey != nil {
		s.watchKey.Close()
		s.watchKey = nil
	}
}

// setBranch updates the current branch; the store-view is derived
// on-demand from repo+branch, so there is nothing further to rebuild
// (§3 invariant: "the session's store-view is always consistent with
// branch").
func (s *Session) setBranch(b model.BranchName) {
	s.branch = b
}

// currentHead returns the branch's current commit, or the zero hash if
// the branch has never been set.
func (s *Session) currentHead(branch model.BranchName) (hash.Hash, bool) {
	return s.repo.Branches.Find(branch)
}

// currentTree loads the tree addressed by branch's current head, or an
// empty tree if the branch is unset.
func (s *Session) currentTree(branch model.BranchName) (*store.Tree, error) {
	head, ok := s.currentHead(branch)
	if !ok {
		return store.Empty(), nil
	}
	return store.OfCommit(s.repo, head)
}

// drainWatches flushes any buffered watch events as asynchronous
// status=2 frames (§6). It is called only between a response and the
// next request read, so it can never split a request/response pair
// (§5) without needing a second writer goroutine or a connection-level
// write lock.
func (s *Session) drainWatches() error {
	for {
		wrote, err := s.drainOne(s.watchAll, false)
		if err != nil {
			return err
		}
		if !wrote {
			break
		}
	}
	for {
		wrote, err := s.drainOne(s.watchKey, true)
		if err != nil {
			return err
		}
		if !wrote {
			break
		}
	}
	return nil
}

func (s *Session) drainOne(sub *pubsub.Subscription, keyed bool) (bool, error) {
	if sub == nil {
		return false, nil
	}
	select {
	case v := <-sub.Out():
		event := v.(store.BranchEvent)
		note := protocol.WatchNotification{Keyed: keyed, Branch: event.Branch}
		if event.Live {
			note.Commit = wire.Some(event.Commit)
		}
		return true, s.conn.WriteWatchNotification(note)
	default:
		return false, nil
	}
}

// retryCommit implements the standard optimistic commit loop (§4.7
// Store, §5 "on head-advance during Set/Set_tree/Remove, rebuild on the
// new head and retry"): mutate is applied against the branch's current
// tree; if the branch advanced concurrently, mutate is re-run against
// the new head.
func (s *Session) retryCommit(branch model.BranchName, info model.Info, mutate func(t *store.Tree) (*store.Tree, error)) error {
	for {
		head, hadHead := s.currentHead(branch)
		var base *store.Tree
		if hadHead {
			t, err := store.OfCommit(s.repo, head)
			if err != nil {
				return err
			}
			base = t
		} else {
			base = store.Empty()
		}

		newTree, err := mutate(base)
		if err != nil {
			return err
		}
		treeKey, err := newTree.Save(s.repo)
		if err != nil {
			return err
		}

		var parents []hash.Hash
		if hadHead {
			parents = []hash.Hash{head}
		}
		commit := model.Commit{Info: info, Parents: parents, Tree: treeKey.Hash}
		commitHash := store.SaveCommit(s.repo, commit)

		test := store.None()
		if hadHead {
			test = store.Some(head)
		}
		set := store.Some(commitHash)

		ok, err := s.repo.Branches.TestAndSet(branch, test, set)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
}

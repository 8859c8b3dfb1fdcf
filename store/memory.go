package store

import (
	"sort"
	"sync"

	"github.com/icristescu/irmin-server/common/pubsub"
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
)

// memoryBlobStore is a plain in-memory append-only object store used
// for the contents and commit object kinds, and as the base for the
// node store below. It implements the testable scenarios' "backend =
// in-memory store" requirement.
type memoryBlobStore struct {
	mu   sync.RWMutex
	data map[hash.Hash][]byte
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{data: make(map[hash.Hash][]byte)}
}

func (s *memoryBlobStore) Mem(h hash.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[h]
	return ok
}

func (s *memoryBlobStore) Find(h hash.Hash) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[h]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (s *memoryBlobStore) Add(data []byte) hash.Hash {
	h := hash.Of(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[h]; !ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.data[h] = cp
	}
	return h
}

func (s *memoryBlobStore) UnsafeAdd(h hash.Hash, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[h] = cp
	return nil
}

func (s *memoryBlobStore) Index() []hash.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]hash.Hash, 0, len(s.data))
	for h := range s.data {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Merge performs a trivial content-level three-way merge: opaque blobs
// have no internal structure to merge, so agreement is the only
// success case.
func (s *memoryBlobStore) Merge(base, ours, theirs hash.Hash) (hash.Hash, bool, error) {
	return trivialMerge(base, ours, theirs)
}

func trivialMerge(base, ours, theirs hash.Hash) (hash.Hash, bool, error) {
	switch {
	case ours == theirs:
		return ours, false, nil
	case base == ours:
		return theirs, false, nil
	case base == theirs:
		return ours, false, nil
	default:
		return hash.Hash{}, true, nil
	}
}

// memoryNodeStore layers structural three-way merge on top of a plain
// blob store, since node values are maps of steps to child keys rather
// than opaque blobs.
type memoryNodeStore struct {
	*memoryBlobStore
}

func newMemoryNodeStore() *memoryNodeStore {
	return &memoryNodeStore{memoryBlobStore: newMemoryBlobStore()}
}

func (s *memoryNodeStore) Merge(base, ours, theirs hash.Hash) (hash.Hash, bool, error) {
	return mergeNodeStructural(s, base, ours, theirs)
}

// memoryBranchStore is the in-memory branch-name registry.
type memoryBranchStore struct {
	mu   sync.RWMutex
	data map[model.BranchName]hash.Hash

	broker    *pubsub.Broker
	byBranch  map[model.BranchName]*pubsub.Broker
	brokersMu sync.Mutex
}

func newMemoryBranchStore() *memoryBranchStore {
	return &memoryBranchStore{
		data:     make(map[model.BranchName]hash.Hash),
		broker:   pubsub.NewBroker(),
		byBranch: make(map[model.BranchName]*pubsub.Broker),
	}
}

func (s *memoryBranchStore) Mem(name model.BranchName) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[name]
	return ok
}

func (s *memoryBranchStore) Find(name model.BranchName) (hash.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.data[name]
	return h, ok
}

func (s *memoryBranchStore) Set(name model.BranchName, commit hash.Hash) error {
	s.mu.Lock()
	s.data[name] = commit
	s.mu.Unlock()
	s.notify(name, commit, true)
	return nil
}

func (s *memoryBranchStore) TestAndSet(name model.BranchName, test wireOption, set wireOption) (bool, error) {
	s.mu.Lock()
	cur, ok := s.data[name]
	var matches bool
	switch {
	case !test.Present && !ok:
		matches = true
	case test.Present && ok && cur == test.Value:
		matches = true
	default:
		matches = false
	}
	if !matches {
		s.mu.Unlock()
		return false, nil
	}
	if set.Present {
		s.data[name] = set.Value
	} else {
		delete(s.data, name)
	}
	s.mu.Unlock()

	s.notify(name, set.Value, set.Present)
	return true, nil
}

func (s *memoryBranchStore) Remove(name model.BranchName) error {
	s.mu.Lock()
	delete(s.data, name)
	s.mu.Unlock()
	s.notify(name, hash.Hash{}, false)
	return nil
}

func (s *memoryBranchStore) List() []model.BranchName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.BranchName, 0, len(s.data))
	for name := range s.data {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *memoryBranchStore) Clear() error {
	s.mu.Lock()
	names := make([]model.BranchName, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	s.data = make(map[model.BranchName]hash.Hash)
	s.mu.Unlock()

	for _, name := range names {
		s.notify(name, hash.Hash{}, false)
	}
	return nil
}

func (s *memoryBranchStore) Watch() *pubsub.Subscription {
	return s.broker.Subscribe()
}

func (s *memoryBranchStore) WatchKey(name model.BranchName) *pubsub.Subscription {
	s.brokersMu.Lock()
	b, ok := s.byBranch[name]
	if !ok {
		b = pubsub.NewBroker()
		s.byBranch[name] = b
	}
	s.brokersMu.Unlock()
	return b.Subscribe()
}

func (s *memoryBranchStore) notify(name model.BranchName, commit hash.Hash, live bool) {
	event := BranchEvent{Branch: name, Commit: commit, Live: live}
	s.broker.Broadcast(event)

	s.brokersMu.Lock()
	b, ok := s.byBranch[name]
	s.brokersMu.Unlock()
	if ok {
		b.Broadcast(event)
	}
}

// NewMemoryRepo constructs a Repo entirely backed by in-memory stores.
func NewMemoryRepo(defaultBranch model.BranchName) *Repo {
	return &Repo{
		Contents:      newMemoryBlobStore(),
		Nodes:         newMemoryNodeStore(),
		Commits:       newMemoryBlobStore(),
		Branches:      newMemoryBranchStore(),
		DefaultBranch: defaultBranch,
	}
}

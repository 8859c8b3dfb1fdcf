package store

import (
	"sort"
	"sync"
	"time"

	bolt "github.com/etcd-io/bbolt"

	"github.com/icristescu/irmin-server/common/pubsub"
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
)

var branchesBucket = []byte("branches")

// bboltBranchStore persists the branch registry in a bbolt file: a
// small number of named pointers updated via compare-and-swap is
// exactly the single-writer, fully-transactional workload bbolt is
// built for, unlike the bulk immutable blobs in badgerBlobStore.
type bboltBranchStore struct {
	db *bolt.DB

	broker    *pubsub.Broker
	byBranch  map[model.BranchName]*pubsub.Broker
	brokersMu sync.Mutex
}

func openBboltBranchStore(path string) (*bboltBranchStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(branchesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltBranchStore{
		db:       db,
		broker:   pubsub.NewBroker(),
		byBranch: make(map[model.BranchName]*pubsub.Broker),
	}, nil
}

func (s *bboltBranchStore) Close() error {
	return s.db.Close()
}

func (s *bboltBranchStore) Mem(name model.BranchName) bool {
	_, ok := s.Find(name)
	return ok
}

func (s *bboltBranchStore) Find(name model.BranchName) (hash.Hash, bool) {
	var h hash.Hash
	var ok bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(branchesBucket).Get([]byte(name))
		if v == nil {
			return nil
		}
		copy(h[:], v)
		ok = true
		return nil
	})
	return h, ok
}

func (s *bboltBranchStore) Set(name model.BranchName, commit hash.Hash) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(branchesBucket).Put([]byte(name), commit[:])
	})
	if err != nil {
		return err
	}
	s.notify(name, commit, true)
	return nil
}

func (s *bboltBranchStore) TestAndSet(name model.BranchName, test wireOption, set wireOption) (bool, error) {
	var ok bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(branchesBucket)
		cur := b.Get([]byte(name))

		var matches bool
		switch {
		case !test.Present && cur == nil:
			matches = true
		case test.Present && cur != nil:
			var h hash.Hash
			copy(h[:], cur)
			matches = h == test.Value
		}
		if !matches {
			return nil
		}
		ok = true
		if set.Present {
			return b.Put([]byte(name), set.Value[:])
		}
		return b.Delete([]byte(name))
	})
	if err != nil {
		return false, err
	}
	if ok {
		s.notify(name, set.Value, set.Present)
	}
	return ok, nil
}

func (s *bboltBranchStore) Remove(name model.BranchName) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(branchesBucket).Delete([]byte(name))
	})
	if err != nil {
		return err
	}
	s.notify(name, hash.Hash{}, false)
	return nil
}

func (s *bboltBranchStore) List() []model.BranchName {
	var out []model.BranchName
	_ = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(branchesBucket).ForEach(func(k, v []byte) error {
			out = append(out, model.BranchName(k))
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *bboltBranchStore) Clear() error {
	var names []model.BranchName
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(branchesBucket)
		if err := b.ForEach(func(k, v []byte) error {
			names = append(names, model.BranchName(k))
			return nil
		}); err != nil {
			return err
		}
		if err := tx.DeleteBucket(branchesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(branchesBucket)
		return err
	})
	if err != nil {
		return err
	}
	for _, name := range names {
		s.notify(name, hash.Hash{}, false)
	}
	return nil
}

func (s *bboltBranchStore) Watch() *pubsub.Subscription {
	return s.broker.Subscribe()
}

func (s *bboltBranchStore) WatchKey(name model.BranchName) *pubsub.Subscription {
	s.brokersMu.Lock()
	b, ok := s.byBranch[name]
	if !ok {
		b = pubsub.NewBroker()
		s.byBranch[name] = b
	}
	s.brokersMu.Unlock()
	return b.Subscribe()
}

func (s *bboltBranchStore) notify(name model.BranchName, commit hash.Hash, live bool) {
	event := BranchEvent{Branch: name, Commit: commit, Live: live}
	s.broker.Broadcast(event)

	s.brokersMu.Lock()
	b, ok := s.byBranch[name]
	s.brokersMu.Unlock()
	if ok {
		b.Broadcast(event)
	}
}

// NewPersistentRepo opens a Repo backed by badger (contents/node/commit
// stores) and bbolt (branch registry) rooted at dir.
func NewPersistentRepo(dir string, defaultBranch model.BranchName) (*Repo, error) {
	contents, nodes, commits, err := openBadgerStores(dir)
	if err != nil {
		return nil, err
	}
	branches, err := openBboltBranchStore(dir + "/branches.db")
	if err != nil {
		return nil, err
	}

	return &Repo{
		Contents:      contents,
		Nodes:         &badgerNodeStore{badgerBlobStore: nodes},
		Commits:       commits,
		Branches:      branches,
		DefaultBranch: defaultBranch,
	}, nil
}

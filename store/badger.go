package store

import (
	"path/filepath"
	"sort"

	badger "github.com/dgraph-io/badger/v2"

	"github.com/icristescu/irmin-server/hash"
)

// badgerBlobStore persists the contents and commit object kinds in a
// badger LSM tree — a natural fit for a large number of immutable,
// append-only, content-addressed blobs that are written once and read
// by hash.
type badgerBlobStore struct {
	db *badger.DB
}

func openBadgerBlobStore(dir string) (*badgerBlobStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerBlobStore{db: db}, nil
}

func (s *badgerBlobStore) Close() error {
	return s.db.Close()
}

func (s *badgerBlobStore) Mem(h hash.Hash) bool {
	var found bool
	_ = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(h[:])
		found = err == nil
		return nil
	})
	return found
}

func (s *badgerBlobStore) Find(h hash.Hash) ([]byte, bool) {
	var out []byte
	var found bool
	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(h[:])
		if err != nil {
			return nil
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil
		}
		out = val
		found = true
		return nil
	})
	return out, found
}

func (s *badgerBlobStore) Add(data []byte) hash.Hash {
	h := hash.Of(data)
	_ = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(h[:]); err == nil {
			return nil
		}
		return txn.Set(h[:], data)
	})
	return h
}

func (s *badgerBlobStore) UnsafeAdd(h hash.Hash, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(h[:], data)
	})
}

func (s *badgerBlobStore) Index() []hash.Hash {
	var out []hash.Hash
	_ = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var h hash.Hash
			copy(h[:], it.Item().Key())
			out = append(out, h)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

func (s *badgerBlobStore) Merge(base, ours, theirs hash.Hash) (hash.Hash, bool, error) {
	return trivialMerge(base, ours, theirs)
}

// badgerNodeStore layers the shared structural merge algorithm on top
// of a badger-backed blob store for the node object kind.
type badgerNodeStore struct {
	*badgerBlobStore
}

func (s *badgerNodeStore) Merge(base, ours, theirs hash.Hash) (hash.Hash, bool, error) {
	return mergeNodeStructural(s, base, ours, theirs)
}

// openBadgerStores opens the contents, node, and commit stores each
// under their own subdirectory of dir.
func openBadgerStores(dir string) (contents, nodes, commits *badgerBlobStore, err error) {
	contents, err = openBadgerBlobStore(filepath.Join(dir, "contents"))
	if err != nil {
		return nil, nil, nil, err
	}
	nodes, err = openBadgerBlobStore(filepath.Join(dir, "nodes"))
	if err != nil {
		return nil, nil, nil, err
	}
	commits, err = openBadgerBlobStore(filepath.Join(dir, "commits"))
	if err != nil {
		return nil, nil, nil, err
	}
	return contents, nodes, commits, nil
}

/*
Package badgerdb provides a persistent CommitKVStore backed by badger.

Application data is kept under a dedicated key prefix, next to a small
metadata record holding the latest committed version and its hash. Every
committed version hash is derived from the previous one and all writes that
happened since, so two nodes applying the same transactions in the same order
report the same application hash.
*/
package badgerdb

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
)

var (
	dataPrefix = []byte{'d'}
	metaKey    = []byte("m:latest")
)

// CommitStore is a KVStore and a CommitKVStore persisting data in a badger
// database.
type CommitStore struct {
	db *badger.DB

	mu      sync.Mutex
	latest  escrowd.CommitID
	pending hash.Hash
}

var (
	_ escrowd.CommitKVStore    = (*CommitStore)(nil)
	_ escrowd.CacheableKVStore = (*CommitStore)(nil)
)

// Open returns a store persisting data in given directory. The latest
// committed version is loaded.
func Open(dir string) (*CommitStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "open %q: %s", dir, err)
	}
	s := &CommitStore{
		db:      db,
		pending: sha256.New(),
	}
	if err := s.LoadLatestVersion(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *CommitStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

func dataKey(key []byte) []byte {
	return append(append([]byte{}, dataPrefix...), key...)
}

// Get returns the value stored under given key or nil.
func (s *CommitStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return value, nil
}

// Has returns true if a value is stored under given key.
func (s *CommitStore) Has(key []byte) (bool, error) {
	v, err := s.Get(key)
	return v != nil, err
}

// Set writes a single value. Prefer batches or cache wraps to group writes.
func (s *CommitStore) Set(key, value []byte) error {
	b := s.NewBatch()
	if err := b.Set(key, value); err != nil {
		return err
	}
	return b.Write()
}

// Delete removes a single value.
func (s *CommitStore) Delete(key []byte) error {
	b := s.NewBatch()
	if err := b.Delete(key); err != nil {
		return err
	}
	return b.Write()
}

// NewBatch returns a batch that writes all operations in a single badger
// transaction.
func (s *CommitStore) NewBatch() escrowd.Batch {
	return &batch{store: s}
}

// CacheWrap returns a btree cache that writes to this store in a single
// transaction.
func (s *CommitStore) CacheWrap() escrowd.KVCacheWrap {
	return store.NewBTreeCacheWrap(s, s.NewBatch(), nil)
}

// Iterator over a domain of keys in ascending order. End is exclusive.
func (s *CommitStore) Iterator(start, end []byte) (escrowd.Iterator, error) {
	return newIterator(s.db, start, end, false)
}

// ReverseIterator over a domain of keys in descending order. End is exclusive.
func (s *CommitStore) ReverseIterator(start, end []byte) (escrowd.Iterator, error) {
	return newIterator(s.db, start, end, true)
}

// Commit closes the current version. All writes since the previous commit are
// hashed together with the previous hash.
func (s *CommitStore) Commit() (escrowd.CommitID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := sha256.New()
	h.Write(s.latest.Hash)
	h.Write(s.pending.Sum(nil))
	next := escrowd.CommitID{
		Version: s.latest.Version + 1,
		Hash:    h.Sum(nil),
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey, encodeCommitID(next))
	})
	if err != nil {
		return escrowd.CommitID{}, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	s.latest = next
	s.pending = sha256.New()
	return next, nil
}

// LoadLatestVersion reads the latest commit information from disk.
func (s *CommitStore) LoadLatestVersion() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	if raw == nil {
		s.latest = escrowd.CommitID{}
		return nil
	}
	id, err := decodeCommitID(raw)
	if err != nil {
		return err
	}
	s.latest = id
	s.pending = sha256.New()
	return nil
}

// LatestVersion returns the last committed version.
func (s *CommitStore) LatestVersion() (escrowd.CommitID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, nil
}

func encodeCommitID(id escrowd.CommitID) []byte {
	raw := make([]byte, 8, 8+len(id.Hash))
	binary.BigEndian.PutUint64(raw, uint64(id.Version))
	return append(raw, id.Hash...)
}

func decodeCommitID(raw []byte) (escrowd.CommitID, error) {
	if len(raw) < 8 {
		return escrowd.CommitID{}, errors.Wrap(errors.ErrDatabase, "corrupted commit info")
	}
	return escrowd.CommitID{
		Version: int64(binary.BigEndian.Uint64(raw[:8])),
		Hash:    append([]byte{}, raw[8:]...),
	}, nil
}

// batch collects operations and writes them in one badger transaction.
type batch struct {
	store *CommitStore
	ops   []store.Op
}

func (b *batch) Set(key, value []byte) error {
	b.ops = append(b.ops, store.SetOp(key, value))
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, store.DelOp(key))
	return nil
}

// Write applies all operations atomically and records them in the pending
// commit hash.
func (b *batch) Write() error {
	if len(b.ops) == 0 {
		return nil
	}
	err := b.store.db.Update(func(txn *badger.Txn) error {
		for _, op := range b.ops {
			var err error
			if op.IsSetOp() {
				err = txn.Set(dataKey(op.Key()), op.Value())
			} else {
				err = txn.Delete(dataKey(op.Key()))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}

	b.store.mu.Lock()
	for _, op := range b.ops {
		writeOp(b.store.pending, op)
	}
	b.store.mu.Unlock()

	b.ops = nil
	return nil
}

func writeOp(h hash.Hash, op store.Op) {
	var kind byte = 'D'
	if op.IsSetOp() {
		kind = 'S'
	}
	var size [8]byte
	h.Write([]byte{kind})
	binary.BigEndian.PutUint64(size[:], uint64(len(op.Key())))
	h.Write(size[:])
	h.Write(op.Key())
	binary.BigEndian.PutUint64(size[:], uint64(len(op.Value())))
	h.Write(size[:])
	h.Write(op.Value())
}

package badgerdb

import (
	"testing"

	"github.com/iov-one/escrowd/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suite(t *testing.T) *store.TestSuite {
	return store.NewTestSuite(func() (store.CacheableKVStore, func()) {
		db, err := Open(t.TempDir())
		require.NoError(t, err)
		return db, func() { db.Close() }
	})
}

func TestBadgerGetSet(t *testing.T)         { suite(t).GetSet(t) }
func TestBadgerCacheConflicts(t *testing.T) { suite(t).CacheConflicts(t) }
func TestBadgerIterator(t *testing.T)       { suite(t).Iterator(t) }

func TestCommitPersistence(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)

	id, err := db.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(0), id.Version)

	cache := db.CacheWrap()
	require.NoError(t, cache.Set([]byte("escrow"), []byte("open")))
	require.NoError(t, cache.Write())

	first, err := db.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)
	assert.Len(t, first.Hash, 32)

	empty, err := db.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(2), empty.Version)
	assert.NotEqual(t, first.Hash, empty.Hash)
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	id, err = db.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, empty, id)

	got, err := db.Get([]byte("escrow"))
	require.NoError(t, err)
	assert.Equal(t, []byte("open"), got)
}

func TestCommitHashIsDeterministic(t *testing.T) {
	apply := func() []byte {
		db, err := Open(t.TempDir())
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, db.Set([]byte("a"), []byte("1")))
		require.NoError(t, db.Delete([]byte("b")))
		id, err := db.Commit()
		require.NoError(t, err)
		return id.Hash
	}
	assert.Equal(t, apply(), apply())
}

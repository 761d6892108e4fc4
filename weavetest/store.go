package weavetest

import (
	"testing"
	"time"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/store/badgerdb"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
)

// ChainID is used by BlockInfo when building test blocks.
const ChainID = "test-chain"

// CommitKVStore returns a store instance that is using a filesystem backend
// engine to store the data.
// This implementation should be used instead of MemStore when you want the
// exact same storage implementation as the production instance is using.
func CommitKVStore(t testing.TB) escrowd.CommitKVStore {
	t.Helper()

	db, err := badgerdb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("cannot open badger store: %s", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// BlockInfo returns information about a block at given height and unix
// time, on the ChainID chain.
func BlockInfo(t testing.TB, height int64, unixTime int64) escrowd.BlockInfo {
	t.Helper()

	header := tmproto.Header{
		ChainID: ChainID,
		Height:  height,
		Time:    time.Unix(unixTime, 0).UTC(),
	}
	info, err := escrowd.NewBlockInfo(header, ChainID, nil)
	if err != nil {
		t.Fatalf("cannot create block info: %s", err)
	}
	return info
}

package store

import "github.com/iov-one/escrowd"

// Move references for all storage types into this package
// for shorter names everywhere

type (
	ReadOnlyKVStore  = escrowd.ReadOnlyKVStore
	SetDeleter       = escrowd.SetDeleter
	KVStore          = escrowd.KVStore
	Batch            = escrowd.Batch
	Iterator         = escrowd.Iterator
	CacheableKVStore = escrowd.CacheableKVStore
	KVCacheWrap      = escrowd.KVCacheWrap
	CommitKVStore    = escrowd.CommitKVStore
	CommitID         = escrowd.CommitID
	Model            = escrowd.Model
)

// Pair constructs a model from a key-value pair
var Pair = escrowd.Pair

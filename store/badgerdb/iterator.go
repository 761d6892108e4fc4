package badgerdb

import (
	"bytes"

	"github.com/dgraph-io/badger"
	"github.com/iov-one/escrowd/errors"
)

// iterator walks over application data within [start, end) using a read
// only badger transaction that lives as long as the iterator.
type iterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	lower   []byte
	upper   []byte
	reverse bool
}

func newIterator(db *badger.DB, start, end []byte, reverse bool) (*iterator, error) {
	lower := dataKey(start)
	upper := []byte{dataPrefix[0] + 1}
	if end != nil {
		upper = dataKey(end)
	}

	txn := db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	it := txn.NewIterator(opts)

	i := &iterator{
		txn:     txn,
		it:      it,
		lower:   lower,
		upper:   upper,
		reverse: reverse,
	}
	if reverse {
		// Reverse seek finds the largest key lower or equal to the given
		// one. End is exclusive.
		it.Seek(upper)
		if it.Valid() && bytes.Equal(it.Item().Key(), upper) {
			it.Next()
		}
	} else {
		it.Seek(lower)
	}
	return i, nil
}

func (i *iterator) Valid() bool {
	if !i.it.Valid() {
		return false
	}
	key := i.it.Item().Key()
	return bytes.Compare(key, i.lower) >= 0 && bytes.Compare(key, i.upper) < 0
}

func (i *iterator) Next() error {
	if !i.Valid() {
		return errors.Wrap(errors.ErrHuman, "iterator is done")
	}
	i.it.Next()
	return nil
}

func (i *iterator) Key() []byte {
	if !i.Valid() {
		panic("iterator is done")
	}
	return i.it.Item().KeyCopy(nil)[len(dataPrefix):]
}

func (i *iterator) Value() []byte {
	if !i.Valid() {
		panic("iterator is done")
	}
	v, err := i.it.Item().ValueCopy(nil)
	if err != nil {
		panic(err)
	}
	return v
}

func (i *iterator) Close() {
	i.it.Close()
	i.txn.Discard()
}

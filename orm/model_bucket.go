package orm

import (
	"fmt"
	"regexp"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

var isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString

// Model is implemented by any entity that can be stored using ModelBucket.
type Model interface {
	escrowd.Persistent
	Validate() error
}

// ModelBucket stores models of a single type under a name prefixed subspace
// of the database.
type ModelBucket struct {
	name   string
	prefix []byte
}

var _ escrowd.QueryHandler = ModelBucket{}

// NewModelBucket returns a bucket storing entities under "<name>:" prefix.
// The name must be unique within an application.
func NewModelBucket(name string) ModelBucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("illegal bucket: %s", name))
	}
	return ModelBucket{
		name:   name,
		prefix: append([]byte(name), ':'),
	}
}

// Name returns the bucket name.
func (b ModelBucket) Name() string {
	return b.name
}

// DBKey is the full key we store in the db, including prefix
// We copy into a new array rather than use append, as we don't
// want consecutive calls to overwrite the same byte array.
func (b ModelBucket) DBKey(key []byte) []byte {
	l := len(b.prefix)
	out := make([]byte, l+len(key))
	copy(out, b.prefix)
	copy(out[l:], key)
	return out
}

// One query the database for a single model instance. Lookup is done by the
// primary key. Result is loaded into given destination model.
// This method returns ErrNotFound if the entity does not exist in the
// database.
func (b ModelBucket) One(db escrowd.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "cannot read from the database")
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", dest)
	}
	if err := dest.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "cannot load %T", dest)
	}
	return nil
}

// Has returns nil if an entity with given key exists and ErrNotFound
// otherwise.
func (b ModelBucket) Has(db escrowd.ReadOnlyKVStore, key []byte) error {
	ok, err := db.Has(b.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "cannot read from the database")
	}
	if !ok {
		return errors.ErrNotFound
	}
	return nil
}

// Put saves given model in the database. Model is validated before saving.
func (b ModelBucket) Put(db escrowd.KVStore, key []byte, m Model) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrEmpty, "key")
	}
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := m.Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot marshal")
	}
	if err := db.Set(b.DBKey(key), raw); err != nil {
		return errors.Wrap(err, "cannot store in the database")
	}
	return nil
}

// Delete removes an entity with given primary key from the database.
// It returns ErrNotFound if an entity with given key does not exist.
func (b ModelBucket) Delete(db escrowd.KVStore, key []byte) error {
	if err := b.Has(db, key); err != nil {
		return err
	}
	if err := db.Delete(b.DBKey(key)); err != nil {
		return errors.Wrap(err, "cannot delete from the database")
	}
	return nil
}

// Register registers this bucket as a query handler under "/<name>". An empty
// name defaults to the bucket name.
func (b ModelBucket) Register(name string, r escrowd.QueryRouter) {
	if name == "" {
		name = b.name
	}
	r.Register("/"+name, b)
}

// Query handles queries from the QueryRouter. Returned keys are stripped of
// the bucket prefix.
func (b ModelBucket) Query(db escrowd.ReadOnlyKVStore, mod string, data []byte) ([]escrowd.Model, error) {
	switch mod {
	case escrowd.KeyQueryMod:
		value, err := db.Get(b.DBKey(data))
		if err != nil {
			return nil, err
		}
		// return nothing on miss
		if value == nil {
			return nil, nil
		}
		return []escrowd.Model{escrowd.Pair(data, value)}, nil
	case escrowd.PrefixQueryMod:
		return b.prefixScan(db, data)
	default:
		return nil, errors.Wrapf(errors.ErrInput, "unknown mod: %s", mod)
	}
}

func (b ModelBucket) prefixScan(db escrowd.ReadOnlyKVStore, prefix []byte) ([]escrowd.Model, error) {
	start := b.DBKey(prefix)
	itr, err := db.Iterator(start, PrefixEnd(start))
	if err != nil {
		return nil, err
	}
	models, err := ConsumeIterator(itr)
	if err != nil {
		return nil, err
	}
	for i := range models {
		models[i].Key = models[i].Key[len(b.prefix):]
	}
	return models, nil
}

// ConsumeIterator will read all remaining data into an
// array and close the iterator
func ConsumeIterator(itr escrowd.Iterator) ([]escrowd.Model, error) {
	defer itr.Close()

	var res []escrowd.Model
	var err error
	for ; itr.Valid(); err = itr.Next() {
		if err != nil {
			return nil, err
		}
		res = append(res, escrowd.Pair(itr.Key(), itr.Value()))
	}
	return res, err
}

// PrefixEnd returns the smallest key that is greater than all keys starting
// with given prefix. Nil is returned if no such key exists.
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

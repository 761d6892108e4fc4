package orm

import (
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int64
}

func (c *counter) Marshal() ([]byte, error)   { return codec.Marshal(c) }
func (c *counter) Unmarshal(raw []byte) error { return codec.Unmarshal(raw, c) }

func (c *counter) Validate() error {
	if c.Count < 0 {
		return errors.Wrap(errors.ErrModel, "negative count")
	}
	return nil
}

func TestModelBucket(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts")

	var c counter
	err := b.One(db, []byte("a"), &c)
	assert.True(t, errors.ErrNotFound.Is(err))

	require.NoError(t, b.Put(db, []byte("a"), &counter{Count: 5}))
	require.NoError(t, b.One(db, []byte("a"), &c))
	assert.Equal(t, int64(5), c.Count)
	assert.NoError(t, b.Has(db, []byte("a")))

	err = b.Put(db, []byte("b"), &counter{Count: -1})
	assert.True(t, errors.ErrModel.Is(err))

	err = b.Put(db, nil, &counter{Count: 1})
	assert.True(t, errors.ErrEmpty.Is(err))

	require.NoError(t, b.Delete(db, []byte("a")))
	assert.True(t, errors.ErrNotFound.Is(b.Has(db, []byte("a"))))
	assert.True(t, errors.ErrNotFound.Is(b.Delete(db, []byte("a"))))
}

func TestModelBucketQuery(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts")
	other := NewModelBucket("cntx")

	require.NoError(t, b.Put(db, []byte("ab"), &counter{Count: 1}))
	require.NoError(t, b.Put(db, []byte("ac"), &counter{Count: 2}))
	require.NoError(t, b.Put(db, []byte("b"), &counter{Count: 3}))
	require.NoError(t, other.Put(db, []byte("aa"), &counter{Count: 4}))

	qr := escrowd.NewQueryRouter()
	b.Register("counters", qr)
	h := qr.Handler("/counters")
	require.NotNil(t, h)

	res, err := h.Query(db, escrowd.KeyQueryMod, []byte("ac"))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, []byte("ac"), res[0].Key)
	var c counter
	require.NoError(t, c.Unmarshal(res[0].Value))
	assert.Equal(t, int64(2), c.Count)

	res, err = h.Query(db, escrowd.KeyQueryMod, []byte("zz"))
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = h.Query(db, escrowd.PrefixQueryMod, []byte("a"))
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, []byte("ab"), res[0].Key)
	assert.Equal(t, []byte("ac"), res[1].Key)

	_, err = h.Query(db, "range", nil)
	assert.True(t, errors.ErrInput.Is(err))
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("ab"), PrefixEnd([]byte("aa")))
	assert.Equal(t, []byte{0x02}, PrefixEnd([]byte{0x01, 0xff}))
	assert.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
}

func TestIllegalBucketName(t *testing.T) {
	assert.Panics(t, func() { NewModelBucket("Bad-Name") })
}

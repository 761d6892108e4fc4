package store

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSuite runs the same behaviour checks against any CacheableKVStore
// implementation. Each check opens a fresh store with the constructor.
type TestSuite struct {
	open TestStoreConstructor
}

// TestStoreConstructor returns a fresh store and a function releasing it.
type TestStoreConstructor func() (base CacheableKVStore, cleanup func())

func NewTestSuite(open TestStoreConstructor) *TestSuite {
	return &TestSuite{open: open}
}

// GetSet checks reads and writes through cache layers that are written or
// discarded.
func (s *TestSuite) GetSet(t *testing.T) {
	base, cleanup := s.open()
	defer cleanup()

	escrow, open := []byte("esc:1"), []byte("open")
	s.AssertGetHas(t, base, escrow, nil, false)
	require.NoError(t, base.Set(escrow, open))
	s.AssertGetHas(t, base, escrow, open, true)

	wallet, funds := []byte("wallet:a"), []byte("100")
	cache := base.CacheWrap()
	s.AssertGetHas(t, cache, escrow, open, true)
	require.NoError(t, cache.Set(wallet, funds))
	s.AssertGetHas(t, cache, wallet, funds, true)
	s.AssertGetHas(t, base, wallet, nil, false)
	require.NoError(t, cache.Write())
	s.AssertGetHas(t, base, wallet, funds, true)

	proposal := []byte("prop:1")
	dropped := base.CacheWrap()
	require.NoError(t, dropped.Set(proposal, []byte("release")))
	dropped.Discard()
	s.AssertGetHas(t, base, proposal, nil, false)

	closing := base.CacheWrap()
	require.NoError(t, closing.Delete(escrow))
	s.AssertGetHas(t, closing, escrow, nil, false)
	s.AssertGetHas(t, base, escrow, open, true)
	require.NoError(t, closing.Write())
	s.AssertGetHas(t, base, escrow, nil, false)
	s.AssertGetHas(t, base, wallet, funds, true)
}

// CacheConflicts checks a cache overriding values of its parent.
func (s *TestSuite) CacheConflicts(t *testing.T) {
	k := func(n int) []byte { return []byte(fmt.Sprintf("key:%02d", n)) }
	v := func(n int) []byte { return []byte(fmt.Sprintf("value:%02d", n)) }

	cases := map[string]struct {
		parent []Op
		child  []Op
		// Key is queried and Value expected, nil for a missing key.
		parentWant []Model
		childWant  []Model
	}{
		"overwrite, delete and add": {
			parent:     []Op{SetOp(k(1), v(1)), SetOp(k(2), v(2))},
			child:      []Op{SetOp(k(1), v(11)), DelOp(k(2)), SetOp(k(3), v(3))},
			parentWant: []Model{Pair(k(1), v(1)), Pair(k(2), v(2)), Pair(k(3), nil)},
			childWant:  []Model{Pair(k(1), v(11)), Pair(k(2), nil), Pair(k(3), v(3))},
		},
		"delete then set again": {
			parent:     []Op{SetOp(k(4), v(4))},
			child:      []Op{DelOp(k(4)), SetOp(k(4), v(14))},
			parentWant: []Model{Pair(k(4), v(4))},
			childWant:  []Model{Pair(k(4), v(14))},
		},
		"set then delete": {
			child:     []Op{SetOp(k(5), v(5)), DelOp(k(5))},
			childWant: []Model{Pair(k(5), nil)},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			parent, cleanup := s.open()
			defer cleanup()
			child := apply(t, parent, tc.parent, tc.child)

			for _, m := range tc.parentWant {
				s.AssertGetHas(t, parent, m.Key, m.Value, m.Value != nil)
			}
			for _, m := range tc.childWant {
				s.AssertGetHas(t, child, m.Key, m.Value, m.Value != nil)
			}
			require.NoError(t, child.Write())
			for _, m := range tc.childWant {
				s.AssertGetHas(t, parent, m.Key, m.Value, m.Value != nil)
			}
		})
	}
}

// Iterator checks that a cache iterates over the merged view of its own
// and its parent's data in both directions and within bounds.
func (s *TestSuite) Iterator(t *testing.T) {
	ms := randModels(6, 20, 40)
	a, a2, b, b2, c, d := ms[0], ms[1], ms[2], ms[3], ms[4], ms[5]
	a2.Key, b2.Key = a.Key, b.Key

	parentSet := randModels(40, 8, 32)
	childSet := randModels(40, 8, 32)
	missing := randModels(10, 8, 32)

	cases := map[string]struct {
		parent []Op
		child  []Op
		want   []Model
	}{
		"child only": {
			child: setOps(a, b, c),
			want:  []Model{a, b, c},
		},
		"parent only": {
			parent: setOps(a, b, c),
			want:   []Model{a, b, c},
		},
		"both layers": {
			parent: setOps(a, b),
			child:  setOps(c),
			want:   []Model{a, b, c},
		},
		"child values win": {
			parent: setOps(a, b, c),
			child:  setOps(a2, b2, d),
			want:   []Model{a2, b2, c, d},
		},
		"deleted entries are skipped": {
			parent: setOps(a, c, d),
			child:  delOps(a, b, d),
			want:   []Model{c},
		},
		"everything deleted": {
			parent: setOps(a, b),
			child:  delOps(a, b),
		},
		"random data": {
			parent: append(setOps(parentSet...), delOps(missing...)...),
			child:  append(setOps(childSet...), delOps(parentSet[:10]...)...),
			want:   append(append([]Model{}, parentSet[10:]...), childSet...),
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			base, cleanup := s.open()
			defer cleanup()
			child := apply(t, base, tc.parent, tc.child)

			want := sortModels(tc.want)
			for _, r := range ranges(want) {
				got := collect(t, child, r)
				require.Equal(t, len(r.want), len(got), "range %s", r)
				for i := range r.want {
					require.True(t, bytes.Equal(r.want[i].Key, got[i].Key), "range %s: key %d", r, i)
					require.Equal(t, r.want[i].Value, got[i].Value, "range %s: value %d", r, i)
				}
			}
		})
	}
}

// AssertGetHas ensures both Get and Has return the expected result.
func (s *TestSuite) AssertGetHas(t testing.TB, kv ReadOnlyKVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	require.NoError(t, err)
	require.Equal(t, val, got)
	exists, err := kv.Has(key)
	require.NoError(t, err)
	require.Equal(t, has, exists)
}

// apply runs the parent operations on base and returns a cache holding the
// child operations.
func apply(t testing.TB, base CacheableKVStore, parent, child []Op) KVCacheWrap {
	t.Helper()
	for _, op := range parent {
		require.NoError(t, op.Apply(base))
	}
	cache := base.CacheWrap()
	for _, op := range child {
		require.NoError(t, op.Apply(cache))
	}
	return cache
}

type keyRange struct {
	start, end []byte
	reverse    bool
	want       []Model
}

func (r keyRange) String() string {
	return fmt.Sprintf("[%X, %X) reverse=%v", r.start, r.end, r.reverse)
}

// ranges returns unbounded, half bounded and bounded ranges over the sorted
// models, each in both directions.
func ranges(sorted []Model) []keyRange {
	res := []keyRange{{want: sorted}}
	if n := len(sorted); n > 1 {
		lo, hi := n/3, n-n/3
		res = append(res,
			keyRange{start: sorted[lo].Key, want: sorted[lo:]},
			keyRange{end: sorted[hi].Key, want: sorted[:hi]},
			keyRange{start: sorted[lo].Key, end: sorted[hi].Key, want: sorted[lo:hi]},
			keyRange{start: sorted[0].Key, end: sorted[0].Key},
		)
	}
	for i, n := 0, len(res); i < n; i++ {
		r := res[i]
		r.reverse = true
		r.want = reverse(r.want)
		res = append(res, r)
	}
	return res
}

func collect(t testing.TB, kv ReadOnlyKVStore, r keyRange) []Model {
	t.Helper()
	var (
		it  Iterator
		err error
	)
	if r.reverse {
		it, err = kv.ReverseIterator(r.start, r.end)
	} else {
		it, err = kv.Iterator(r.start, r.end)
	}
	require.NoError(t, err)
	defer it.Close()

	var res []Model
	for ; it.Valid(); err = it.Next() {
		require.NoError(t, err)
		res = append(res, Pair(it.Key(), it.Value()))
	}
	require.NoError(t, err)
	return res
}

func randModels(count, keySize, valueSize int) []Model {
	res := make([]Model, count)
	for i := range res {
		res[i] = Pair(randBytes(keySize), randBytes(valueSize))
	}
	return res
}

func randBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

func reverse(models []Model) []Model {
	res := make([]Model, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		res = append(res, models[i])
	}
	return res
}

func sortModels(models []Model) []Model {
	res := append([]Model(nil), models...)
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].Key, res[j].Key) < 0
	})
	return res
}

func setOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = SetOp(m.Key, m.Value)
	}
	return res
}

func delOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = DelOp(m.Key)
	}
	return res
}

package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGenesis(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "genesis.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{
		"chain_id": "escrow-test-net",
		"app_state": {"cash": [], "conf": {"escrow": {"fee_bps": 5}}}
	}`), 0600))

	gen, err := LoadGenesis(valid)
	require.NoError(t, err)
	assert.Equal(t, "escrow-test-net", gen.ChainID)
	assert.Contains(t, gen.AppState, "cash")
	assert.Contains(t, gen.AppState, "conf")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"chain_id": `), 0600))
	_, err = LoadGenesis(broken)
	assert.Error(t, err)

	_, err = LoadGenesis(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

type recordingInit struct {
	name  string
	calls *[]string
	err   error
}

func (r recordingInit) FromGenesis(opts escrowd.Options, kv escrowd.KVStore) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestChainInitializers(t *testing.T) {
	var calls []string
	inits := ChainInitializers(
		recordingInit{name: "first", calls: &calls},
		recordingInit{name: "second", calls: &calls, err: errors.ErrInput},
		recordingInit{name: "third", calls: &calls},
	)
	err := inits.FromGenesis(escrowd.Options{}, store.MemStore())
	assert.True(t, errors.ErrInput.Is(err))
	assert.Equal(t, []string{"first", "second"}, calls)
}

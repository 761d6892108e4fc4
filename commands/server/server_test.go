package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"
)

func TestInitCmd(t *testing.T) {
	home := t.TempDir()
	gen := func(home string, args []string) (json.RawMessage, error) {
		return json.RawMessage(`{"answer": 42}`), nil
	}

	require.NoError(t, InitCmd(gen, log.NewNopLogger(), home, "escrow-test", nil))

	genFile := filepath.Join(home, "config", "genesis.json")
	raw, err := os.ReadFile(genFile)
	require.NoError(t, err)
	var doc GenesisDoc
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.JSONEq(t, `"escrow-test"`, string(doc["chain_id"]))
	assert.JSONEq(t, `{"answer": 42}`, string(doc["app_state"]))
	assert.FileExists(t, filepath.Join(home, "config", "priv_validator_key.json"))

	// Running again keeps the chain and only replaces the state.
	gen = func(home string, args []string) (json.RawMessage, error) {
		return json.RawMessage(`{"answer": 7}`), nil
	}
	require.NoError(t, InitCmd(gen, log.NewNopLogger(), home, "other-chain", nil))
	raw, err = os.ReadFile(genFile)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.JSONEq(t, `"escrow-test"`, string(doc["chain_id"]))
	assert.JSONEq(t, `{"answer": 7}`, string(doc["app_state"]))
}

type failingInit struct{}

func (failingInit) FromGenesis(opts escrowd.Options, kv escrowd.KVStore) error {
	var v int
	if err := opts.ReadOptions("value", &v); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if v != 1 {
		return errors.Wrap(errors.ErrState, "value must be 1")
	}
	return nil
}

func TestValidateGenesis(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	cases := map[string]struct {
		content string
		wantErr *errors.Error
	}{
		"valid": {
			content: `{"chain_id": "escrow-test", "app_state": {"value": 1}}`,
		},
		"rejected state": {
			content: `{"chain_id": "escrow-test", "app_state": {"value": 2}}`,
			wantErr: errors.ErrState,
		},
		"invalid chain id": {
			content: `{"chain_id": "x", "app_state": {"value": 1}}`,
			wantErr: errors.ErrInput,
		},
		"not json": {
			content: `{`,
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			path := write(testName+".json", tc.content)
			err := ValidateGenesis(failingInit{}, []string{path})
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.True(t, tc.wantErr.Is(err), "%+v", err)
		})
	}
}

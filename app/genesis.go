package app

import (
	"encoding/json"
	"os"

	"github.com/iov-one/escrowd"
	"github.com/pkg/errors"
)

// Genesis is the subset of the tendermint genesis file that the
// application reads on its own, ie. when validating a generated file.
type Genesis struct {
	ChainID  string          `json:"chain_id"`
	AppState escrowd.Options `json:"app_state"`
}

// LoadGenesis tries to load a given file into a Genesis struct
func LoadGenesis(filePath string) (Genesis, error) {
	var gen Genesis

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return gen, errors.Wrap(err, "loading genesis file")
	}
	if err := json.Unmarshal(raw, &gen); err != nil {
		return gen, errors.Wrap(err, "unmarshaling genesis file")
	}
	return gen, nil
}

// ChainInitializers lets you initialize many extensions with one function
func ChainInitializers(inits ...escrowd.Initializer) escrowd.Initializer {
	return chainInitializer{inits}
}

type chainInitializer struct {
	inits []escrowd.Initializer
}

// FromGenesis will pass opts to all Initializers in the list,
// aborting at the first error.
func (c chainInitializer) FromGenesis(opts escrowd.Options, kv escrowd.KVStore) error {
	for _, i := range c.inits {
		if err := i.FromGenesis(opts, kv); err != nil {
			return err
		}
	}
	return nil
}

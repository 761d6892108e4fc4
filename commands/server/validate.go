package server

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/app"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
)

// ValidateGenesis loads each genesis file into a throwaway store to ensure
// the application state it declares is accepted by all initializers.
func ValidateGenesis(ini escrowd.Initializer, genesisPaths []string) error {
	for _, path := range genesisPaths {
		if err := validateGenesis(ini, path); err != nil {
			return errors.Wrap(err, path)
		}
	}
	return nil
}

func validateGenesis(ini escrowd.Initializer, genesisPath string) error {
	genesis, err := app.LoadGenesis(genesisPath)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if !escrowd.IsValidChainID(genesis.ChainID) {
		return errors.Wrapf(errors.ErrInput, "chain id: %q", genesis.ChainID)
	}

	// Use in memory store because we want to discard the result.
	db := store.MemStore()
	if err := ini.FromGenesis(genesis.AppState, db); err != nil {
		return errors.Wrap(err, "cannot initialize from genesis")
	}
	return nil
}

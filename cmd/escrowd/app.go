package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/app"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/crypto"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store/badgerdb"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/iov-one/escrowd/x/escrow"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

const (
	defaultTicker  = "ESC"
	defaultFeeBps  = 100
	genesisSupply  = 1000000000
	ownerKeyFile   = "owner_key.json"
	storeDirectory = "escrowd.db"
)

// GenInitOptions creates a new owner key and returns the application state
// giving it the whole supply and the ownership of the escrow configuration.
// The key is written to the config directory.
func GenInitOptions(home string, args []string) (json.RawMessage, error) {
	ticker := defaultTicker
	if len(args) > 0 {
		ticker = args[0]
	}
	if !coin.IsCC(ticker) {
		return nil, errors.Wrapf(errors.ErrCurrency, "invalid ticker %q", ticker)
	}
	feeBps := int64(defaultFeeBps)
	if len(args) > 1 {
		v, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "fee basis points: %s", err)
		}
		feeBps = v
	}

	key := crypto.GenPrivKeyEd25519()
	if err := saveKey(filepath.Join(home, "config", ownerKeyFile), key); err != nil {
		return nil, err
	}
	owner := key.PublicKey().Address()

	conf := escrow.Configuration{
		Owner:              owner,
		FeeBps:             int32(feeBps),
		FeeCollector:       owner,
		EmergencyAdmins:    []escrowd.Address{owner},
		EmergencyThreshold: 1,
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "escrow configuration")
	}

	state := map[string]interface{}{
		"cash": []cash.GenesisAccount{{
			Address: owner,
			Coins:   []coin.Coin{coin.NewCoin(genesisSupply, ticker)},
		}},
		"conf": map[string]interface{}{
			"escrow": conf,
		},
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return raw, nil
}

func saveKey(path string, key *crypto.PrivateKey) error {
	raw, err := json.Marshal(key)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return errors.Wrapf(errors.ErrInput, "write key: %s", err)
	}
	return nil
}

// GenerateApp opens the badger store in the home directory and returns the
// ABCI application using it.
func GenerateApp(home string, logger log.Logger, debug bool) (abci.Application, io.Closer, error) {
	dir := filepath.Join(home, "data", storeDirectory)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, errors.Wrapf(errors.ErrDatabase, "create %s: %s", dir, err)
	}
	db, err := badgerdb.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	return app.NewApplication(db, logger, debug), db, nil
}

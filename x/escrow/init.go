package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/gconf"
)

const optKey = "escrow"

// GenesisEscrow is an escrow declared in the genesis file. The identifier
// is the decimal representation of the 128 bit integer. Funds of genesis
// escrows must be provided by the cash genesis, under the escrow address.
type GenesisEscrow struct {
	ID            string            `json:"id"`
	Token         string            `json:"token"`
	Payers        []escrowd.Address `json:"payers"`
	Payees        []escrowd.Address `json:"payees"`
	Release       SignerGroup       `json:"release"`
	Refund        SignerGroup       `json:"refund"`
	Arbiter       SignerGroup       `json:"arbiter"`
	AutoReleaseAt escrowd.UnixTime  `json:"auto_release_at"`
	ExpiresAt     escrowd.UnixTime  `json:"expires_at"`
	Disputed      bool              `json:"disputed"`
	Deposits      []Deposit         `json:"deposits"`
}

// Initializer fulfils the Initializer interface to load the module
// configuration and escrows from the genesis file.
type Initializer struct{}

var _ escrowd.Initializer = Initializer{}

func (Initializer) FromGenesis(opts escrowd.Options, db escrowd.KVStore) error {
	if err := gconf.InitConfig(db, opts, packageName, &Configuration{}); err != nil {
		return errors.Wrap(err, "init config")
	}

	var escrows []GenesisEscrow
	if err := opts.ReadOptions(optKey, &escrows); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	for i, g := range escrows {
		id, err := ParseID(g.ID)
		if err != nil {
			return errors.Wrapf(err, "escrow %d", i)
		}
		if err := escrowBucket.Has(db, id); err == nil {
			return errors.Wrapf(errors.ErrDuplicate, "escrow %s", g.ID)
		}
		esc := Escrow{
			ID:            id,
			Token:         g.Token,
			Payers:        g.Payers,
			Payees:        g.Payees,
			Release:       g.Release,
			Refund:        g.Refund,
			Arbiter:       g.Arbiter,
			AutoReleaseAt: g.AutoReleaseAt,
			ExpiresAt:     g.ExpiresAt,
			Disputed:      g.Disputed,
			Address:       Condition(id).Address(),
		}
		for _, d := range g.Deposits {
			if err := addDeposit(&esc, d.Payer, d.Amount); err != nil {
				return errors.Wrapf(err, "escrow %s", g.ID)
			}
		}
		if err := escrowBucket.Put(db, id, &esc); err != nil {
			return errors.Wrapf(err, "escrow %s", g.ID)
		}
	}
	return nil
}

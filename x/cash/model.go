package cash

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/orm"
)

// Wallet holds all coins owned by a single address.
type Wallet struct {
	Coins coin.Coins `json:"coins"`
}

var _ orm.Model = (*Wallet)(nil)

func (w *Wallet) Marshal() ([]byte, error) {
	return codec.Marshal(w)
}

func (w *Wallet) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, w)
}

// Validate requires normalized and non negative coins.
func (w *Wallet) Validate() error {
	if err := w.Coins.Validate(); err != nil {
		return errors.Wrap(err, "coins")
	}
	if !w.Coins.IsNonNegative() {
		return errors.Wrap(errors.ErrAmount, "negative balance")
	}
	return nil
}

// NewWalletBucket returns a bucket storing wallets by their owner address.
func NewWalletBucket() orm.ModelBucket {
	return orm.NewModelBucket("cash")
}

func loadWallet(db escrowd.ReadOnlyKVStore, b orm.ModelBucket, addr escrowd.Address) (*Wallet, error) {
	var w Wallet
	switch err := b.One(db, addr, &w); {
	case err == nil:
		return &w, nil
	case errors.ErrNotFound.Is(err):
		return &Wallet{}, nil
	default:
		return nil, err
	}
}

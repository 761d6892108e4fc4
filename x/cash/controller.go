package cash

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/orm"
)

// CoinMover is an interface for moving coins between accounts.
type CoinMover interface {
	// MoveCoins is an atomic operation that moves coins from the source
	// account to the destination. The source must hold at least amount.
	MoveCoins(db escrowd.KVStore, src, dest escrowd.Address, amount coin.Coin) error
}

// CoinMinter is an interface to create new coins.
type CoinMinter interface {
	CoinMint(db escrowd.KVStore, dest escrowd.Address, amount coin.Coin) error
}

// Balancer is an interface to query the amount of coins owned by an account.
type Balancer interface {
	Balance(db escrowd.ReadOnlyKVStore, addr escrowd.Address) (coin.Coins, error)
}

// Controller is the functionality needed by cash.Handler and escrow.
type Controller interface {
	CoinMover
	CoinMinter
	Balancer
}

// BaseController is a simple implementation of Controller backed by a
// wallet bucket.
type BaseController struct {
	bucket orm.ModelBucket
}

var _ Controller = BaseController{}

// NewController returns a controller using the default wallet bucket.
func NewController() BaseController {
	return BaseController{bucket: NewWalletBucket()}
}

// Balance returns the coins held by given address. An unknown address holds
// nothing.
func (c BaseController) Balance(db escrowd.ReadOnlyKVStore, addr escrowd.Address) (coin.Coins, error) {
	w, err := loadWallet(db, c.bucket, addr)
	if err != nil {
		return nil, err
	}
	return w.Coins, nil
}

// MoveCoins moves the given amount from src to dest.
// If src doesn't exist, or doesn't have sufficient
// coins, it fails.
func (c BaseController) MoveCoins(db escrowd.KVStore, src, dest escrowd.Address, amount coin.Coin) error {
	if err := amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "non-positive amount: %s", amount)
	}

	sender, err := loadWallet(db, c.bucket, src)
	if err != nil {
		return errors.Wrap(err, "sender")
	}
	if !sender.Coins.Contains(amount) {
		return errors.Wrapf(errors.ErrInsufficientAmount, "%s holds %s, needs %s",
			src, sender.Coins.Get(amount.Ticker), amount)
	}
	if sender.Coins, err = sender.Coins.Subtract(amount); err != nil {
		return err
	}
	// Sender might be the recipient, the wallet must be saved before it
	// is loaded again.
	if err := c.bucket.Put(db, src, sender); err != nil {
		return errors.Wrap(err, "save sender")
	}

	recipient, err := loadWallet(db, c.bucket, dest)
	if err != nil {
		return errors.Wrap(err, "recipient")
	}
	if recipient.Coins, err = recipient.Coins.Add(amount); err != nil {
		return err
	}
	if err := c.bucket.Put(db, dest, recipient); err != nil {
		return errors.Wrap(err, "save recipient")
	}
	return nil
}

// CoinMint attempts to add the given amount of coins to the destination
// address. Fails if it overflows the wallet.
func (c BaseController) CoinMint(db escrowd.KVStore, dest escrowd.Address, amount coin.Coin) error {
	if err := amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "non-positive amount: %s", amount)
	}
	w, err := loadWallet(db, c.bucket, dest)
	if err != nil {
		return err
	}
	if w.Coins, err = w.Coins.Add(amount); err != nil {
		return err
	}
	return c.bucket.Put(db, dest, w)
}

package escrow

import (
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
)

// BasisPoints is the denominator of a fee expressed in basis points.
const BasisPoints = 10000

// ComputeNet splits amount into the part received by the recipient and the
// fee. The fee is rounded down.
func ComputeNet(amount coin.Amount, feeBps int32) (net, fee coin.Amount, err error) {
	if feeBps < 0 {
		return net, fee, errors.Wrapf(errors.ErrInput, "negative fee %d bps", feeBps)
	}
	if amount.IsNegative() {
		return net, fee, errors.Wrap(errors.ErrAmount, "negative amount")
	}
	fee, err = amount.MulFrac(int64(feeBps), BasisPoints)
	if err != nil {
		return net, fee, errors.Wrap(err, "fee")
	}
	net, err = amount.Sub(fee)
	if err != nil {
		return net, fee, errors.Wrap(err, "net")
	}
	if net.IsNegative() {
		return coin.Amount{}, coin.Amount{}, errors.Wrapf(ErrFeeTooHigh, "%d bps of %s", feeBps, amount)
	}
	return net, fee, nil
}

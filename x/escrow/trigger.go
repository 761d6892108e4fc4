package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
)

// AutoRelease splits the whole balance equally between payees once the auto
// release time has passed. The release flow proposal, if any, is dropped.
func (x Executor) AutoRelease(db escrowd.KVStore, esc *Escrow, now escrowd.UnixTime) (*Execution, error) {
	if esc.AutoReleaseAt == 0 {
		return nil, errors.Wrap(errors.ErrState, "auto release is not configured")
	}
	if now < esc.AutoReleaseAt {
		return nil, errors.Wrapf(ErrTooEarly, "auto release at %d", esc.AutoReleaseAt)
	}
	if err := checkActive(esc); err != nil {
		return nil, err
	}
	dist, err := EqualSplit(esc.Balance, esc.Payees)
	if err != nil {
		return nil, err
	}
	if err := clearFlow(db, esc.ID, FlowRelease); err != nil {
		return nil, err
	}
	esc.Nonce++
	p := Proposal{Nonce: esc.Nonce, Kind: KindRelease, Distribution: dist}
	return x.Execute(db, esc, FlowRelease, &p, true)
}

// RefundTimeout returns deposits to payers once the escrow has expired.
// Payers are refunded in deposit order until the balance is exhausted. An
// expired escrow without funds is closed.
func (x Executor) RefundTimeout(db escrowd.KVStore, esc *Escrow, now escrowd.UnixTime) (*Execution, error) {
	if now < esc.ExpiresAt {
		return nil, errors.Wrapf(ErrTooEarly, "expires at %d", esc.ExpiresAt)
	}
	if err := checkActive(esc); err != nil {
		return nil, err
	}
	if esc.Balance.IsZero() {
		esc.Closed = true
		for flow := range flowNames {
			if err := clearFlow(db, esc.ID, flow); err != nil {
				return nil, err
			}
		}
		if err := escrowBucket.Put(db, esc.ID, esc); err != nil {
			return nil, errors.Wrap(err, "save escrow")
		}
		return &Execution{Flow: FlowRefund, Kind: KindRefund, TimeTriggered: true, Closed: true}, nil
	}

	var dist []Payout
	left := esc.Balance
	for _, d := range esc.Deposits {
		if !left.IsPositive() {
			break
		}
		amount := d.Amount
		if amount.Cmp(left) > 0 {
			amount = left
		}
		var err error
		if left, err = left.Sub(amount); err != nil {
			return nil, err
		}
		dist = append(dist, Payout{Recipient: d.Payer, Amount: amount})
	}
	p := Proposal{Nonce: esc.Nonce, Kind: KindRefund, Distribution: dist}
	return x.Execute(db, esc, FlowRefund, &p, true)
}

// EqualSplit divides amount between recipients. The remainder is given one
// unit at a time to the first recipients. Zero entries are omitted.
func EqualSplit(amount coin.Amount, recipients []escrowd.Address) ([]Payout, error) {
	if len(recipients) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "no recipients")
	}
	share, rem, err := amount.Quo(coin.NewAmount(int64(len(recipients))))
	if err != nil {
		return nil, err
	}
	extra, _ := rem.Int64()
	one := coin.NewAmount(1)

	var dist []Payout
	for i, r := range recipients {
		v := share
		if int64(i) < extra {
			if v, err = v.Add(one); err != nil {
				return nil, err
			}
		}
		if v.IsZero() {
			continue
		}
		dist = append(dist, Payout{Recipient: r, Amount: v})
	}
	return dist, nil
}

func checkActive(esc *Escrow) error {
	if esc.Closed {
		return errors.Wrap(ErrClosed, FormatID(esc.ID))
	}
	if esc.Disputed {
		return errors.Wrap(ErrDisputed, "time triggers are suspended")
	}
	return nil
}

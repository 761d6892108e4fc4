package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
)

// Ledger moves funds between accounts. It must fail without side effects
// when the source cannot cover the amount.
type Ledger interface {
	MoveCoins(db escrowd.KVStore, src, dest escrowd.Address, amount coin.Coin) error
}

// Execution describes a distribution that was applied to an escrow.
type Execution struct {
	Flow  Flow
	Kind  PayoutKind
	Nonce uint64
	// Payouts holds the amount each recipient received, fee excluded.
	Payouts []Payout
	Fee     coin.Amount
	// TimeTriggered is set when the distribution did not go through the
	// approval process.
	TimeTriggered bool
	Closed        bool
}

// Executor applies distributions to escrows.
type Executor struct {
	ledger Ledger
}

// NewExecutor returns an executor transferring funds using given ledger.
func NewExecutor(ledger Ledger) Executor {
	return Executor{ledger: ledger}
}

type transfer struct {
	dest   escrowd.Address
	amount coin.Amount
}

// Execute pays the distribution out of the escrow balance and saves the
// escrow. The whole transfer plan is computed before any funds move.
func (x Executor) Execute(db escrowd.KVStore, esc *Escrow, flow Flow, p *Proposal, timeTriggered bool) (*Execution, error) {
	if err := checkTotal(esc, p.Distribution); err != nil {
		return nil, err
	}
	total, err := distributionTotal(p.Distribution)
	if err != nil {
		return nil, err
	}

	exec := Execution{
		Flow:          flow,
		Kind:          p.Kind,
		Nonce:         p.Nonce,
		TimeTriggered: timeTriggered,
	}
	var plan []transfer
	var collector escrowd.Address
	switch p.Kind {
	case KindRelease:
		conf, err := loadConf(db)
		if err != nil {
			return nil, err
		}
		collector = conf.FeeCollector
		for _, entry := range p.Distribution {
			net, fee, err := ComputeNet(entry.Amount, conf.FeeBps)
			if err != nil {
				return nil, err
			}
			if exec.Fee, err = exec.Fee.Add(fee); err != nil {
				return nil, err
			}
			exec.Payouts = append(exec.Payouts, Payout{Recipient: entry.Recipient, Amount: net})
			plan = append(plan, transfer{dest: entry.Recipient, amount: net})
		}
		plan = append(plan, transfer{dest: collector, amount: exec.Fee})
	case KindRefund:
		for _, entry := range p.Distribution {
			exec.Payouts = append(exec.Payouts, entry)
			plan = append(plan, transfer{dest: entry.Recipient, amount: entry.Amount})
		}
	default:
		return nil, errors.Wrapf(errors.ErrInput, "unknown payout kind %d", p.Kind)
	}

	balance, err := esc.Balance.Sub(total)
	if err != nil {
		return nil, err
	}

	for _, t := range plan {
		if t.amount.IsZero() {
			continue
		}
		c := coin.Coin{Ticker: esc.Token, Amount: t.amount}
		if err := x.ledger.MoveCoins(db, esc.Address, t.dest, c); err != nil {
			return nil, errors.Wrapf(err, "transfer %s to %s", c, t.dest)
		}
	}

	esc.Balance = balance
	if balance.IsZero() {
		esc.Closed = true
		esc.Disputed = false
		for flow := range flowNames {
			if err := clearFlow(db, esc.ID, flow); err != nil {
				return nil, err
			}
		}
	}
	exec.Closed = esc.Closed
	if err := escrowBucket.Put(db, esc.ID, esc); err != nil {
		return nil, errors.Wrap(err, "save escrow")
	}
	return &exec, nil
}

package cash

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
)

func init() {
	codec.RegisterMsg(&SendMsg{}, "cash/SendMsg")
}

const maxMemoSize int = 128

// SendMsg moves coins from the source to the destination wallet.
type SendMsg struct {
	Source      escrowd.Address `json:"source"`
	Destination escrowd.Address `json:"destination"`
	Amount      coin.Coin       `json:"amount"`
	Memo        string          `json:"memo,omitempty"`
}

var _ escrowd.Msg = (*SendMsg)(nil)

// Path returns the routing path for this message
func (SendMsg) Path() string {
	return "cash/send"
}

// Validate makes sure that this is sensible
func (m *SendMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Source", m.Source.Validate())
	errs = errors.AppendField(errs, "Destination", m.Destination.Validate())
	if err := m.Amount.Validate(); err != nil {
		errs = errors.AppendField(errs, "Amount", err)
	} else if !m.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrAmount, "must be positive"))
	}
	if len(m.Memo) > maxMemoSize {
		errs = errors.AppendField(errs, "Memo", errors.Wrap(errors.ErrInput, "memo too long"))
	}
	return errs
}

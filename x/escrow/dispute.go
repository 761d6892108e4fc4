package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

// OpenDispute moves the escrow into the disputed state. From then on only
// the arbiter and the emergency flows can distribute funds. Any payer or
// payee can open a dispute.
func OpenDispute(esc *Escrow, actor escrowd.Address) error {
	if !esc.IsParty(actor) {
		return errors.Wrapf(ErrNotSigner, "%s is neither a payer nor a payee", actor)
	}
	if esc.Closed {
		return errors.Wrap(ErrClosed, FormatID(esc.ID))
	}
	if esc.Disputed {
		return errors.Wrap(ErrDisputed, "dispute already open")
	}
	esc.Disputed = true
	return nil
}

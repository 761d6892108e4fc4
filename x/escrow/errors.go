package escrow

import "github.com/iov-one/escrowd/errors"

var (
	ErrNotSigner     = errors.Register(1010, "not an authorized party")
	ErrClosed        = errors.Register(1011, "escrow closed")
	ErrDisputed      = errors.Register(1012, "escrow disputed")
	ErrNotDisputed   = errors.Register(1013, "escrow not disputed")
	ErrBadPayee      = errors.Register(1014, "recipient is not a payee")
	ErrBadPayer      = errors.Register(1015, "recipient is not a payer")
	ErrBadTotal      = errors.Register(1016, "invalid distribution total")
	ErrFeeTooHigh    = errors.Register(1017, "fee exceeds amount")
	ErrTooEarly      = errors.Register(1018, "too early")
	ErrNoProposal    = errors.Register(1019, "no proposal")
	ErrStaleProposal = errors.Register(1020, "stale proposal")
)

package sigs

import "github.com/iov-one/escrowd/errors"

// ErrInvalidSequence is returned when a signature sequence does not match
// the account state.
var ErrInvalidSequence = errors.Register(120, "invalid sequence number")

package app

import (
	"context"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

// Recovery is a decorator to recover from panics in transactions,
// so we can log them as errors
type Recovery struct{}

var _ escrowd.Decorator = Recovery{}

// NewRecovery creates a Recovery decorator
func NewRecovery() Recovery {
	return Recovery{}
}

// Check turns panics into normal errors
func (r Recovery) Check(ctx context.Context, info escrowd.BlockInfo, store escrowd.KVStore, tx escrowd.Tx, next escrowd.Checker) (_ *escrowd.CheckResult, err error) {
	defer errors.Recover(&err)
	return next.Check(ctx, info, store, tx)
}

// Deliver turns panics into normal errors
func (r Recovery) Deliver(ctx context.Context, info escrowd.BlockInfo, store escrowd.KVStore, tx escrowd.Tx, next escrowd.Deliverer) (_ *escrowd.DeliverResult, err error) {
	defer errors.Recover(&err)
	return next.Deliver(ctx, info, store, tx)
}

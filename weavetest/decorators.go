package weavetest

import (
	"context"

	"github.com/iov-one/escrowd"
)

// Decorator is a mock implementation of the escrowd.Decorator interface.
//
// Set CheckErr or DeliverErr to force error response for corresponding method.
// If error attributes are not set then wrapped handler method is called and
// its result returned.
// Each method call is counted. Regardless of the method call result the
// counter is incremented.
type Decorator struct {
	checkCall int
	// CheckErr if set is returned by the Check method before calling
	// the wrapped handler.
	CheckErr error

	deliverCall int
	// DeliverErr if set is returned by the Deliver method before calling
	// the wrapped handler.
	DeliverErr error
}

var _ escrowd.Decorator = (*Decorator)(nil)

func (d *Decorator) Check(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Checker) (*escrowd.CheckResult, error) {
	d.checkCall++

	if d.CheckErr != nil {
		return &escrowd.CheckResult{}, d.CheckErr
	}
	return next.Check(ctx, info, db, tx)
}

func (d *Decorator) Deliver(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Deliverer) (*escrowd.DeliverResult, error) {
	d.deliverCall++

	if d.DeliverErr != nil {
		return &escrowd.DeliverResult{}, d.DeliverErr
	}
	return next.Deliver(ctx, info, db, tx)
}

func (d *Decorator) CheckCallCount() int {
	return d.checkCall
}

func (d *Decorator) DeliverCallCount() int {
	return d.deliverCall
}

func (d *Decorator) CallCount() int {
	return d.checkCall + d.deliverCall
}

// Decorate returns a handler that calls the decorator first.
func Decorate(h escrowd.Handler, d escrowd.Decorator) escrowd.Handler {
	return &decoratedHandler{hn: h, dc: d}
}

type decoratedHandler struct {
	hn escrowd.Handler
	dc escrowd.Decorator
}

var _ escrowd.Handler = (*decoratedHandler)(nil)

func (d *decoratedHandler) Check(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	return d.dc.Check(ctx, info, db, tx, d.hn)
}

func (d *decoratedHandler) Deliver(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	return d.dc.Deliver(ctx, info, db, tx, d.hn)
}

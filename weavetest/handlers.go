package weavetest

import (
	"context"

	"github.com/iov-one/escrowd"
)

// Handler is a mock implementation of the escrowd.Handler interface that
// returns preconfigured results and counts calls.
type Handler struct {
	checkCall   int
	CheckResult escrowd.CheckResult
	CheckErr    error

	deliverCall   int
	DeliverResult escrowd.DeliverResult
	DeliverErr    error

	// Panic if set makes every call panic with given value.
	Panic interface{}
}

var _ escrowd.Handler = (*Handler)(nil)

func (h *Handler) Check(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	h.checkCall++
	if h.Panic != nil {
		panic(h.Panic)
	}
	// Copy the result so the caller can modify it safely.
	res := h.CheckResult
	return &res, h.CheckErr
}

func (h *Handler) Deliver(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	h.deliverCall++
	if h.Panic != nil {
		panic(h.Panic)
	}
	res := h.DeliverResult
	return &res, h.DeliverErr
}

func (h *Handler) CheckCallCount() int {
	return h.checkCall
}

func (h *Handler) DeliverCallCount() int {
	return h.deliverCall
}

func (h *Handler) CallCount() int {
	return h.checkCall + h.deliverCall
}

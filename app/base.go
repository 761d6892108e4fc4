package app

import (
	"context"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	abci "github.com/tendermint/tendermint/abci/types"
)

// BaseApp adds DeliverTx and CheckTx handlers to the storage and query
// functionality of StoreApp
type BaseApp struct {
	*StoreApp
	decoder escrowd.TxDecoder
	handler escrowd.Handler
}

var _ abci.Application = BaseApp{}

// NewBaseApp constructs a basic abci application
func NewBaseApp(store *StoreApp, decoder escrowd.TxDecoder, handler escrowd.Handler) BaseApp {
	return BaseApp{
		StoreApp: store,
		decoder:  decoder,
		handler:  handler,
	}
}

// DeliverTx - ABCI - dispatches to the handler
func (b BaseApp) DeliverTx(req abci.RequestDeliverTx) abci.ResponseDeliverTx {
	tx, err := b.loadTx(req.Tx)
	if err != nil {
		return escrowd.DeliverTxError(err, b.debug)
	}

	info := b.BlockInfo().WithLogInfo(
		"call", "deliver_tx",
		"path", escrowd.GetPath(tx))

	res, err := b.handler.Deliver(context.Background(), info, b.DeliverStore(), tx)
	return escrowd.DeliverOrError(res, err, b.debug)
}

// CheckTx - ABCI - dispatches to the handler
func (b BaseApp) CheckTx(req abci.RequestCheckTx) abci.ResponseCheckTx {
	tx, err := b.loadTx(req.Tx)
	if err != nil {
		return escrowd.CheckTxError(err, b.debug)
	}

	info := b.BlockInfo().WithLogInfo(
		"call", "check_tx",
		"path", escrowd.GetPath(tx))

	res, err := b.handler.Check(context.Background(), info, b.CheckStore(), tx)
	return escrowd.CheckOrError(res, err, b.debug)
}

// loadTx calls the decoder, and capture any panics
func (b BaseApp) loadTx(txBytes []byte) (tx escrowd.Tx, err error) {
	defer errors.Recover(&err)
	tx, err = b.decoder(txBytes)
	return
}

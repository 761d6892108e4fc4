package app

import (
	"context"
	"sync"
	"time"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/tendermint/tendermint/libs/log"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
)

// Executor runs transactions against a store without a consensus engine.
// Calls are serialised, each one is executed in its own cache wrap that is
// written only when both check and deliver succeed.
type Executor struct {
	mu      sync.Mutex
	store   escrowd.CacheableKVStore
	handler escrowd.Handler
	chainID string
	logger  log.Logger
	height  int64
}

// NewExecutor returns an executor processing transactions with given
// handler, usually the result of Stack.
func NewExecutor(store escrowd.CacheableKVStore, handler escrowd.Handler, chainID string) *Executor {
	return &Executor{
		store:   store,
		handler: handler,
		chainID: chainID,
		logger:  log.NewNopLogger(),
	}
}

// WithLogger sets the logger passed down to handlers.
func (e *Executor) WithLogger(logger log.Logger) *Executor {
	e.logger = logger
	return e
}

// Execute processes a single transaction as if it was included in a new
// block created at given time.
func (e *Executor) Execute(ctx context.Context, now time.Time, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.height++
	header := tmproto.Header{ChainID: e.chainID, Height: e.height, Time: now}
	info, err := escrowd.NewBlockInfo(header, e.chainID, e.logger)
	if err != nil {
		return nil, errors.Wrap(err, "block info")
	}
	info = info.WithLogInfo("path", escrowd.GetPath(tx))

	check := e.store.CacheWrap()
	_, err = e.handler.Check(ctx, info, check, tx)
	check.Discard()
	if err != nil {
		return nil, errors.Wrap(err, "check")
	}

	cache := e.store.CacheWrap()
	res, err := e.handler.Deliver(ctx, info, cache, tx)
	if err != nil {
		cache.Discard()
		return nil, err
	}
	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(err, "write")
	}
	return res, nil
}

// Store returns the underlying store. It must not be modified while a
// transaction is executed.
func (e *Executor) Store() escrowd.ReadOnlyKVStore {
	return e.store
}

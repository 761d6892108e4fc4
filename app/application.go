package app

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/x"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/iov-one/escrowd/x/escrow"
	"github.com/iov-one/escrowd/x/sigs"
	"github.com/tendermint/tendermint/libs/log"
)

// Name is reported by the ABCI Info call.
const Name = "escrowd"

// Authenticator returns the authentication used by all message handlers.
func Authenticator() x.Authenticator {
	return x.ChainAuth(sigs.Authenticate{})
}

// Routes returns a router with all message handlers registered.
func Routes(auth x.Authenticator, control cash.Controller) *Router {
	r := NewRouter()
	cash.RegisterRoutes(r, auth, control)
	escrow.RegisterRoutes(r, auth, control)
	return r
}

// QueryRouter returns a query router with all buckets registered.
func QueryRouter() escrowd.QueryRouter {
	r := escrowd.NewQueryRouter()
	r.RegisterAll(
		cash.RegisterQuery,
		sigs.RegisterQuery,
		escrow.RegisterQuery,
	)
	return r
}

// Stack wraps the given handler with all decorators in the order they are
// applied to every transaction. Signatures are optional because escrow time
// triggers can be submitted by anyone.
func Stack(h escrowd.Handler) escrowd.Handler {
	return ChainDecorators(
		NewLogging(),
		NewRecovery(),
		sigs.NewDecorator().AllowMissingSigs(),
		NewSavepoint().OnDeliver(),
	).WithHandler(h)
}

// Initializers returns all extensions that are loading state from the
// genesis file.
func Initializers() escrowd.Initializer {
	return ChainInitializers(
		&cash.Initializer{},
		&escrow.Initializer{},
	)
}

// NewApplication returns an ABCI application backed by the given store.
func NewApplication(store escrowd.CommitKVStore, logger log.Logger, debug bool) BaseApp {
	handler := Stack(Routes(Authenticator(), cash.NewController()))
	storeApp := NewStoreApp(Name, store, QueryRouter()).
		WithInit(Initializers()).
		WithLogger(logger).
		WithDebug(debug)
	return NewBaseApp(storeApp, TxDecoder, handler)
}

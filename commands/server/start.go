package server

import (
	"io"

	"github.com/iov-one/escrowd/errors"
	"github.com/tendermint/tendermint/abci/server"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
	tmos "github.com/tendermint/tendermint/libs/os"
)

// AppGenerator lets us lazily initialize app, using home dir
// and logger potentially initialized with other flags. The returned closer
// releases the application storage.
type AppGenerator func(home string, logger log.Logger, debug bool) (abci.Application, io.Closer, error)

// StartCmd initializes the application and serves it over the ABCI socket
// until the process is interrupted.
func StartCmd(gen AppGenerator, logger log.Logger, home string, addr string, debug bool) error {
	app, closer, err := gen(home, logger, debug)
	if err != nil {
		return err
	}

	logger.Info("Starting ABCI app", "bind", addr)

	svr, err := server.NewServer(addr, "socket", app)
	if err != nil {
		closer.Close()
		return errors.Wrapf(errors.ErrInput, "creating listener: %s", err)
	}
	svr.SetLogger(logger.With("module", "abci-server"))
	if err := svr.Start(); err != nil {
		closer.Close()
		return errors.Wrapf(errors.ErrState, "starting server: %s", err)
	}

	tmos.TrapSignal(logger, func() {
		if err := svr.Stop(); err != nil {
			logger.Error("cannot stop server", "err", err)
		}
		if err := closer.Close(); err != nil {
			logger.Error("cannot close store", "err", err)
		}
	})

	// Wait forever, TrapSignal exits the process.
	select {}
}

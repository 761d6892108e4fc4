package app

import (
	"context"
	"time"

	"github.com/iov-one/escrowd"
)

// Logging is a decorator to log messages as they pass through
type Logging struct{}

var _ escrowd.Decorator = Logging{}

// NewLogging creates a Logging decorator
func NewLogging() Logging {
	return Logging{}
}

// Check logs error -> info, success -> debug
func (r Logging) Check(ctx context.Context, info escrowd.BlockInfo, store escrowd.KVStore, tx escrowd.Tx, next escrowd.Checker) (*escrowd.CheckResult, error) {
	start := time.Now()
	res, err := next.Check(ctx, info, store, tx)
	var resLog string
	if err == nil {
		resLog = res.Log
	}
	logDuration(info, start, resLog, err, true)
	return res, err
}

// Deliver logs error -> error, success -> info
func (r Logging) Deliver(ctx context.Context, info escrowd.BlockInfo, store escrowd.KVStore, tx escrowd.Tx, next escrowd.Deliverer) (*escrowd.DeliverResult, error) {
	start := time.Now()
	res, err := next.Deliver(ctx, info, store, tx)
	var resLog string
	if err == nil {
		resLog = res.Log
	}
	logDuration(info, start, resLog, err, false)
	return res, err
}

// logDuration writes information about the time and result to the logger
func logDuration(info escrowd.BlockInfo, start time.Time, msg string, err error, lowPrio bool) {
	delta := time.Since(start)
	logger := info.Logger().With("duration", delta/time.Microsecond)

	// Although message can be empty, we still want to emit a log entry
	// because it contains other relevant information beside the message.
	switch {
	case err != nil:
		logger.Error(msg, "err", err)
	case lowPrio:
		logger.Debug(msg)
	default:
		logger.Info(msg)
	}
}

package scheduler

import (
	"log/slog"

	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
)

// cronLogger routes cron engine messages into slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{sl.Err(err)}, keysAndValues...)...)
}

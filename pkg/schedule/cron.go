package schedule

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// NewCron creates the trigger runner: a standard five-field cron evaluated in
// loc, logging through zerolog and recovering job panics.
func NewCron(loc *time.Location) *cron.Cron {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-scheduler/pkg/device"
)

// Compiler turns schedules into recurring triggers that write to the device layer.
type Compiler struct {
	writer  device.TagWriter
	timeout time.Duration
	tracker *Tracker
}

// NewCompiler creates a compiler whose jobs write through writer, each write
// bounded by timeout.
func NewCompiler(writer device.TagWriter, timeout time.Duration, tracker *Tracker) *Compiler {
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	return &Compiler{writer: writer, timeout: timeout, tracker: tracker}
}

// Compile emits a start and an end trigger for every period of sch.
func (c *Compiler) Compile(sch Schedule) ([]Trigger, error) {
	triggers := make([]Trigger, 0, len(sch.Periods)*2)

	for i, p := range sch.Periods {
		start, err := ParseClock(p.StartTime)
		if err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("periods[%d].startTime", i), Reason: err.Error()}
		}
		end, err := ParseClock(p.EndTime)
		if err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("periods[%d].endTime", i), Reason: err.Error()}
		}

		startKey := TriggerKey{TagID: sch.TagID, Purpose: PurposeStart, Day: p.DayOfWeek, At: start}
		endKey := TriggerKey{TagID: sch.TagID, Purpose: PurposeEnd, Day: p.DayOfWeek, At: end}

		triggers = append(triggers,
			Trigger{Key: startKey, Spec: cronSpec(p.DayOfWeek, start), Run: c.job(startKey, sch.OnValue)},
			Trigger{Key: endKey, Spec: cronSpec(p.DayOfWeek, end), Run: c.job(endKey, sch.OffValue)},
		)
	}

	return triggers, nil
}

// cronSpec builds a five-field "minute hour * * weekday" expression
func cronSpec(day Weekday, at Clock) string {
	return fmt.Sprintf("%d %d * * %d", at.Minute(), at.Hour(), int(day))
}

// job returns the trigger callback. It never panics or propagates a
// device error: the runner owns the goroutine it executes on.
func (c *Compiler) job(key TriggerKey, value string) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("trigger", key.String()).Interface("panic", r).Msg("Trigger job panicked")
			}
		}()

		logger := log.With().Str("tag", key.TagID).Str("purpose", string(key.Purpose)).Str("value", value).Logger()
		logger.Info().Msg("Trigger fired")

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		ok, err := writeTag(ctx, c.writer, key.TagID, value)
		c.tracker.Record(key.TagID, value, ok, err)

		if err != nil {
			logger.Error().Err(err).Msg("Failed to set tag value")
			return
		}
		if !ok {
			logger.Warn().Msg("Tag could not be set")
		}
	}
}

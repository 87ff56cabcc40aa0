package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-scheduler/pkg/device"
	"golang.org/x/time/rate"
)

// Reconciler computes the value every scheduled tag should hold right now and
// writes it, correcting for missed triggers and freshly changed schedules.
type Reconciler struct {
	writer  device.TagWriter
	timeout time.Duration
	limiter *rate.Limiter
	tracker *Tracker
}

// NewReconciler creates a reconciler. writesPerSecond <= 0 disables pacing.
func NewReconciler(writer device.TagWriter, timeout time.Duration, writesPerSecond int, tracker *Tracker) *Reconciler {
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	r := &Reconciler{writer: writer, timeout: timeout, tracker: tracker}
	if writesPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(writesPerSecond), writesPerSecond)
	}
	return r
}

// Reconcile writes each schedule's value for now. A failure on one tag is
// logged and recorded; the remaining tags are still reconciled. It stops
// early only when ctx is cancelled.
func (r *Reconciler) Reconcile(ctx context.Context, now time.Time, schedules []Schedule) []device.WriteResult {
	results := make([]device.WriteResult, 0, len(schedules))

	for _, sch := range schedules {
		value := sch.ValueAt(now)

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				log.Warn().Err(err).Msg("Reconciliation interrupted")
				return results
			}
		}

		res := r.apply(ctx, sch.TagID, value)
		results = append(results, res)
	}

	return results
}

func (r *Reconciler) apply(ctx context.Context, tagID, value string) device.WriteResult {
	wctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ok, err := writeTag(wctx, r.writer, tagID, value)

	res := r.tracker.Record(tagID, value, ok, err)

	switch {
	case err != nil:
		log.Error().Err(err).Str("tag", tagID).Str("value", value).Msg("Failed to set tag value")
	case !ok:
		log.Warn().Str("tag", tagID).Str("value", value).Msg("Could not set tag value")
	default:
		log.Info().Str("tag", tagID).Str("value", value).Msg("Set tag value based on current time")
	}
	return res
}

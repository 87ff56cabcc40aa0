package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/urmzd/homai-scheduler/pkg/device"
)

// writeTag performs a bounded tag write. The call returns when ctx is done
// even if the writer ignores it; a late result is discarded.
func writeTag(ctx context.Context, w device.TagWriter, tagID, value string) (bool, error) {
	type result struct {
		ok  bool
		err error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("tag write panicked: %v", r)}
			}
		}()
		ok, err := w.SetTagValue(ctx, tagID, value)
		ch <- result{ok: ok, err: err}
	}()

	select {
	case r := <-ch:
		if errors.Is(r.err, context.DeadlineExceeded) {
			return false, fmt.Errorf("%w: writing %s", device.ErrTimeout, tagID)
		}
		return r.ok, r.err
	case <-ctx.Done():
		return false, fmt.Errorf("%w: writing %s", device.ErrTimeout, tagID)
	}
}

// Tracker remembers the outcome of the most recent write per tag.
type Tracker struct {
	mu   sync.RWMutex
	last map[string]device.WriteResult
	now  func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		last: make(map[string]device.WriteResult),
		now:  now,
	}
}

// Record stores the outcome of a write and returns it.
func (t *Tracker) Record(tagID, value string, ok bool, err error) device.WriteResult {
	res := device.WriteResult{
		TagID: tagID,
		Value: value,
		OK:    ok && err == nil,
		At:    t.now(),
	}
	if err != nil {
		res.Error = err.Error()
	} else if !ok {
		res.Error = device.ErrRejected.Error()
	}

	t.mu.Lock()
	t.last[tagID] = res
	t.mu.Unlock()
	return res
}

// Last returns the most recent write for tagID.
func (t *Tracker) Last(tagID string) (device.WriteResult, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res, ok := t.last[tagID]
	return res, ok
}

// Forget drops the write history of tagID.
func (t *Tracker) Forget(tagID string) {
	t.mu.Lock()
	delete(t.last, tagID)
	t.mu.Unlock()
}

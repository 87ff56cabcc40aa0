package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Fixed instants used across tests. 2024-01-01 is a Monday.
var (
	monday10    = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	wednesday   = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	tuesday10   = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	errBusFault = errors.New("bus fault")
)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

type tagWrite struct {
	TagID string
	Value string
}

// fakeWriter records every write. Tags in fail return an error, tags in
// reject return false, and tags in hang block until ctx is done.
type fakeWriter struct {
	mu        sync.Mutex
	connected bool
	writes    []tagWrite
	fail      map[string]error
	reject    map[string]bool
	hang      map[string]bool
	panics    map[string]bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		connected: true,
		fail:      map[string]error{},
		reject:    map[string]bool{},
		hang:      map[string]bool{},
		panics:    map[string]bool{},
	}
}

func (w *fakeWriter) SetTagValue(ctx context.Context, tagID, value string) (bool, error) {
	w.mu.Lock()
	w.writes = append(w.writes, tagWrite{TagID: tagID, Value: value})
	err := w.fail[tagID]
	rejected := w.reject[tagID]
	hang := w.hang[tagID]
	panics := w.panics[tagID]
	w.mu.Unlock()

	if panics {
		panic("driver crashed")
	}
	if hang {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	return !rejected, nil
}

func (w *fakeWriter) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) setConnected(v bool) {
	w.mu.Lock()
	w.connected = v
	w.mu.Unlock()
}

func (w *fakeWriter) Writes() []tagWrite {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]tagWrite, len(w.writes))
	copy(out, w.writes)
	return out
}

func (w *fakeWriter) Reset() {
	w.mu.Lock()
	w.writes = nil
	w.mu.Unlock()
}

// fakeRunner stands in for cron. When capacity > 0, AddFunc fails while
// capacity entries are live.
type fakeRunner struct {
	mu       sync.Mutex
	next     cron.EntryID
	jobs     map[cron.EntryID]func()
	specs    map[cron.EntryID]string
	capacity int
	started  bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		jobs:  map[cron.EntryID]func(){},
		specs: map[cron.EntryID]string{},
	}
}

func (r *fakeRunner) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capacity > 0 && len(r.jobs) >= r.capacity {
		return 0, errors.New("runner full")
	}
	r.next++
	r.jobs[r.next] = cmd
	r.specs[r.next] = spec
	return r.next, nil
}

func (r *fakeRunner) Remove(id cron.EntryID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	delete(r.specs, id)
}

func (r *fakeRunner) Start() {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
}

func (r *fakeRunner) Stop() context.Context {
	r.mu.Lock()
	r.started = false
	r.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func (r *fakeRunner) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *fakeRunner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *fakeRunner) Job(id cron.EntryID) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	return job, ok
}

func (r *fakeRunner) setCapacity(n int) {
	r.mu.Lock()
	r.capacity = n
	r.mu.Unlock()
}

func (r *fakeRunner) Specs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	return out
}

func workday(tagID string) Schedule {
	return Schedule{
		TagID:      tagID,
		Name:       "Workday",
		Periods:    []Period{{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}},
		OnValue:    "on",
		OffValue:   "off",
		TimeFormat: TimeFormat24h,
	}
}

// entryIDs returns the runner ids of ownerID's live triggers.
func (r *Registry) entryIDs(ownerID string) []cron.EntryID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]cron.EntryID, 0, len(r.entries[ownerID]))
	for _, e := range r.entries[ownerID] {
		ids = append(ids, e.id)
	}
	return ids
}

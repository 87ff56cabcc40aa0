package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-scheduler/pkg/device"
)

// Default timings used when Options leaves them unset
const (
	DefaultStartupDelay    = 5 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultWritesPerSecond = 20
)

// Options configures a Service
type Options struct {
	// Location is the timezone schedules are evaluated in (default time.Local)
	Location *time.Location

	// StartupDelay is how long Start waits before the first reconciliation,
	// giving the device layer time to finish connecting
	StartupDelay time.Duration

	// WriteTimeout bounds every individual tag write
	WriteTimeout time.Duration

	// WritesPerSecond paces reconciliation writes; negative disables pacing
	WritesPerSecond int

	// Now overrides the wall clock (tests)
	Now func() time.Time
}

// Stats summarises the service for health reporting
type Stats struct {
	Schedules int `json:"schedules"`
	ArmedTags int `json:"armedTags"`
}

// Service coordinates the store, the trigger registry, the compiler and the
// reconciler. It is the only entry point the API layer uses.
type Service struct {
	// mu serializes mutations so a tag's cancel, install, persist and
	// reconcile sequence is never interleaved with another mutation
	mu sync.Mutex

	store      *Store
	registry   *Registry
	compiler   *Compiler
	reconciler *Reconciler
	tracker    *Tracker
	writer     device.TagWriter
	runner     Runner

	loc          *time.Location
	startupDelay time.Duration
	now          func() time.Time

	ready        atomic.Bool
	startupMu    sync.Mutex
	startupTimer *time.Timer
}

// NewService creates a Service. Nothing is loaded or scheduled until Start.
func NewService(store *Store, writer device.TagWriter, runner Runner, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.StartupDelay <= 0 {
		opts.StartupDelay = DefaultStartupDelay
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.WritesPerSecond == 0 {
		opts.WritesPerSecond = DefaultWritesPerSecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tracker := NewTracker(opts.Now)

	return &Service{
		store:        store,
		registry:     NewRegistry(runner),
		compiler:     NewCompiler(writer, opts.WriteTimeout, tracker),
		reconciler:   NewReconciler(writer, opts.WriteTimeout, opts.WritesPerSecond, tracker),
		tracker:      tracker,
		writer:       writer,
		runner:       runner,
		loc:          opts.Location,
		startupDelay: opts.StartupDelay,
		now:          opts.Now,
	}
}

// Start loads the schedules file, installs every schedule's triggers, starts
// the runner, and arranges for a reconciliation after the startup delay. An
// unreadable schedules file is logged and the service starts empty.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.Load() {
		return nil
	}

	loaded, err := s.store.Load()
	if err != nil {
		// The file is left untouched until the next edit.
		log.Error().Err(err).Str("path", s.store.Path()).Msg("Failed to load schedules, starting empty")
		loaded = nil
	}
	s.installAllLocked(loaded)
	s.runner.Start()
	s.ready.Store(true)

	s.startupMu.Lock()
	s.startupTimer = time.AfterFunc(s.startupDelay, func() {
		if !s.writer.IsConnected() {
			log.Warn().Msg("Device layer not connected, skipping startup reconciliation")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.reconcileLocked(context.Background())
	})
	s.startupMu.Unlock()

	log.Info().
		Int("schedules", len(loaded)).
		Str("timezone", s.loc.String()).
		Dur("startup_delay", s.startupDelay).
		Msg("Scheduler started")
	return nil
}

// Stop cancels the pending startup reconciliation, stops the runner, and
// waits for running trigger jobs until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.startupMu.Lock()
	if s.startupTimer != nil {
		s.startupTimer.Stop()
		s.startupTimer = nil
	}
	s.startupMu.Unlock()

	if !s.ready.Swap(false) {
		return
	}

	select {
	case <-s.runner.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("Timed out waiting for trigger jobs to finish")
	}
	log.Info().Msg("Scheduler stopped")
}

// Ready reports whether Start has completed.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// Connected reports whether the device layer accepts writes.
func (s *Service) Connected() bool {
	return s.writer.IsConnected()
}

// Location returns the timezone schedules are evaluated in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Put creates or replaces the schedule for sch.TagID and applies it
// immediately. When the schedules file cannot be written the stored schedule
// is returned together with a *PersistenceError.
func (s *Service) Put(ctx context.Context, sch Schedule) (Schedule, error) {
	if err := sch.Validate(); err != nil {
		return Schedule{}, err
	}
	if err := s.available(); err != nil {
		return Schedule{}, err
	}

	sch = sch.Clone()
	triggers, err := s.compiler.Compile(sch)
	if err != nil {
		return Schedule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()

	prev, hadPrev := s.store.Get(sch.TagID)
	cancelled := s.registry.CancelAll(sch.TagID)
	s.store.Remove(sch.TagID)
	s.store.Upsert(sch)
	if err := s.registry.Install(sch.TagID, triggers); err != nil {
		s.store.Remove(sch.TagID)
		if hadPrev {
			s.store.Upsert(prev)
			s.installAllLocked([]Schedule{prev})
		}
		log.Error().Err(err).Str("tag", sch.TagID).Msg("Failed to install triggers, previous schedule kept")
		return Schedule{}, err
	}

	log.Info().
		Str("tag", sch.TagID).
		Int("periods", len(sch.Periods)).
		Int("cancelled", cancelled).
		Int("installed", len(triggers)).
		Msg("Schedule installed")

	persistErr := s.saveLocked()
	// The new rule takes effect now, even if the caller goes away mid-write.
	s.reconcileLocked(context.WithoutCancel(ctx))

	return sch, persistErr
}

// Delete removes the schedule for tagID and cancels its triggers. The tag's
// current value is left as it is. Deleting an unknown tag is not an error.
func (s *Service) Delete(ctx context.Context, tagID string) error {
	if tagID == "" {
		return &ValidationError{Field: "tagId", Reason: "is required"}
	}
	if err := s.available(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()

	cancelled := s.registry.CancelAll(tagID)
	removed := s.store.Remove(tagID)
	s.tracker.Forget(tagID)

	log.Info().Str("tag", tagID).Bool("existed", removed).Int("cancelled", cancelled).Msg("Schedule deleted")

	return s.saveLocked()
}

// List returns every schedule with its state at the current time. It never
// writes to the device layer.
func (s *Service) List() []Status {
	now := s.now().In(s.loc)
	schedules := s.store.List()

	out := make([]Status, 0, len(schedules))
	for _, sch := range schedules {
		out = append(out, s.status(sch, now))
	}
	return out
}

// Get returns the status of one schedule.
func (s *Service) Get(tagID string) (Status, error) {
	sch, ok := s.store.Get(tagID)
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrNotFound, tagID)
	}
	return s.status(sch, s.now().In(s.loc)), nil
}

// Reconcile writes the current value of every scheduled tag.
func (s *Service) Reconcile(ctx context.Context) ([]device.WriteResult, error) {
	if err := s.available(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconcileLocked(ctx), nil
}

// Reload re-reads the schedules file, replaces all triggers, and reconciles
// when the device layer is connected.
func (s *Service) Reload(ctx context.Context) error {
	if !s.ready.Load() {
		return ErrRuntimeUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to reload schedules: %w", err)
	}

	cancelled := s.registry.CancelEverything()
	s.installAllLocked(loaded)
	log.Info().Int("schedules", len(loaded)).Int("cancelled", cancelled).Msg("Schedules reloaded")

	if s.writer.IsConnected() {
		s.reconcileLocked(ctx)
	}
	return nil
}

// TriggerKeys returns the live trigger keys for tagID.
func (s *Service) TriggerKeys(tagID string) []TriggerKey {
	return s.registry.Keys(tagID)
}

// Stats counts stored schedules and the tags with live triggers.
func (s *Service) Stats() Stats {
	return Stats{
		Schedules: s.store.Len(),
		ArmedTags: len(s.registry.Owners()),
	}
}

// Store returns the underlying schedule store.
func (s *Service) Store() *Store {
	return s.store
}

func (s *Service) available() error {
	if !s.ready.Load() {
		return fmt.Errorf("%w: scheduler not started", ErrRuntimeUnavailable)
	}
	if !s.writer.IsConnected() {
		return fmt.Errorf("%w: %w", ErrRuntimeUnavailable, device.ErrNotConnected)
	}
	return nil
}

func (s *Service) status(sch Schedule, now time.Time) Status {
	st := Status{Schedule: sch, IsOn: sch.Active(now)}
	if last, ok := s.tracker.Last(sch.TagID); ok {
		st.LastWrite = &last
	}
	return st
}

// installAllLocked compiles and installs every schedule. A schedule that
// fails to compile or install is logged and skipped.
func (s *Service) installAllLocked(schedules []Schedule) {
	for _, sch := range schedules {
		triggers, err := s.compiler.Compile(sch)
		if err != nil {
			log.Error().Err(err).Str("tag", sch.TagID).Msg("Failed to compile schedule")
			continue
		}
		s.registry.CancelAll(sch.TagID)
		if err := s.registry.Install(sch.TagID, triggers); err != nil {
			log.Error().Err(err).Str("tag", sch.TagID).Msg("Failed to install triggers")
		}
	}
}

// refreshLocked adopts edits another process made to the schedules file
// since it was last loaded or saved, so the next save does not drop them.
func (s *Service) refreshLocked() {
	changed, err := s.store.Changed()
	if err != nil || !changed {
		return
	}

	loaded, err := s.store.Load()
	if err != nil {
		log.Warn().Err(err).Str("path", s.store.Path()).Msg("Schedules file changed but is unreadable, keeping in-memory schedules")
		return
	}
	cancelled := s.registry.CancelEverything()
	s.installAllLocked(loaded)
	log.Info().Int("schedules", len(loaded)).Int("cancelled", cancelled).Msg("Picked up outside edits to schedules file")
}

func (s *Service) saveLocked() error {
	if err := s.store.Save(); err != nil {
		log.Error().Err(err).Str("path", s.store.Path()).Msg("Error saving schedules")
		return &PersistenceError{Path: s.store.Path(), Err: err}
	}
	return nil
}

func (s *Service) reconcileLocked(ctx context.Context) []device.WriteResult {
	now := s.now().In(s.loc)
	results := s.reconciler.Reconcile(ctx, now, s.store.List())

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	log.Debug().Int("tags", len(results)).Int("failed", failed).Time("at", now).Msg("Reconciliation finished")
	return results
}

// IsPersistenceError reports whether err only signals a failed save.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

package schedule

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store is the in-memory set of schedules keyed by tag, backed by a JSON file.
// The in-memory set is the source of truth; the file only carries it across restarts.
type Store struct {
	mu        sync.RWMutex
	path      string
	schedules []Schedule
	digest    [sha256.Size]byte

	// fileMu serializes file writes
	fileMu sync.Mutex
}

// NewStore creates a store backed by the file at path. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the path to the schedules file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the schedules file and replaces the in-memory set with its contents.
// A missing file is an empty store. Duplicate tags keep the last entry.
func (s *Store) Load() ([]Schedule, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.Info().Str("path", s.path).Msg("No schedule file found, starting with empty schedules")
		s.mu.Lock()
		s.schedules = nil
		s.digest = [sha256.Size]byte{}
		s.mu.Unlock()
		return []Schedule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules: %w", err)
	}

	var loaded []Schedule
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse schedules: %w", err)
	}

	s.mu.Lock()
	s.schedules = nil
	for _, sch := range loaded {
		if sch.Periods == nil {
			sch.Periods = []Period{}
		}
		s.upsertLocked(sch)
	}
	s.digest = sha256.Sum256(data)
	out := s.listLocked()
	s.mu.Unlock()

	log.Info().Str("path", s.path).Int("count", len(out)).Msg("Loaded schedules from file")
	return out, nil
}

// Save writes the full set to disk. The file is replaced by rename so a crash
// mid-write leaves the previous contents intact.
func (s *Store) Save() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	s.mu.RLock()
	list := s.listLocked()
	s.mu.RUnlock()

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.digest = sha256.Sum256(data)
	s.mu.Unlock()

	log.Debug().Str("path", s.path).Int("count", len(list)).Msg("Schedules saved to file")
	return nil
}

// Changed reports whether the file on disk differs from what was last loaded or saved.
func (s *Store) Changed() (bool, error) {
	data, err := os.ReadFile(s.path)
	s.mu.RLock()
	known := s.digest
	s.mu.RUnlock()

	if os.IsNotExist(err) {
		return known != [sha256.Size]byte{}, nil
	}
	if err != nil {
		return false, err
	}
	return sha256.Sum256(data) != known, nil
}

// Upsert stores sch, replacing any schedule for the same tag in place.
func (s *Store) Upsert(sch Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(sch.Clone())
}

// Remove deletes the schedule for tagID and reports whether one existed.
func (s *Store) Remove(tagID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sch := range s.schedules {
		if sch.TagID == tagID {
			s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the schedule for tagID.
func (s *Store) Get(tagID string) (Schedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sch := range s.schedules {
		if sch.TagID == tagID {
			return sch.Clone(), true
		}
	}
	return Schedule{}, false
}

// List returns a copy of all schedules in insertion order.
func (s *Store) List() []Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

// Len returns the number of schedules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.schedules)
}

func (s *Store) upsertLocked(sch Schedule) {
	for i := range s.schedules {
		if s.schedules[i].TagID == sch.TagID {
			s.schedules[i] = sch
			return
		}
	}
	s.schedules = append(s.schedules, sch)
}

func (s *Store) listLocked() []Schedule {
	out := make([]Schedule, 0, len(s.schedules))
	for _, sch := range s.schedules {
		out = append(out, sch.Clone())
	}
	return out
}

// writeFileAtomic writes data to a temp file in the target directory, syncs it,
// and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create schedules directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace schedules file: %w", err)
	}
	return nil
}

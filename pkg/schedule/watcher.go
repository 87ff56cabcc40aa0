package schedule

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Watcher reloads the service when the schedules file is edited outside the
// process. Writes made by the store itself are recognised by content digest
// and ignored.
type Watcher struct {
	svc      *Service
	debounce time.Duration
}

// NewWatcher creates a watcher for svc's schedules file.
func NewWatcher(svc *Service, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	return &Watcher{svc: svc, debounce: debounce}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// rename-over-file saves are seen.
func (w *Watcher) Run(ctx context.Context) error {
	path := w.svc.Store().Path()
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(dir); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("Watching schedules file")

	reload := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("dir", dir).Msg("Schedules watch error")

		case <-reload:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	changed, err := w.svc.Store().Changed()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to inspect schedules file")
		return
	}
	if !changed {
		return
	}

	log.Info().Str("path", w.svc.Store().Path()).Msg("Schedules file changed on disk, reloading")
	if err := w.svc.Reload(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to reload schedules")
	}
}

package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Purpose tells whether a trigger starts or ends a period
type Purpose string

const (
	PurposeStart Purpose = "start"
	PurposeEnd   Purpose = "end"
)

// TriggerKey identifies a trigger exactly. Owner matching is by full tag
// equality, so one tag's id being a prefix of another's never matters.
type TriggerKey struct {
	TagID   string
	Purpose Purpose
	Day     Weekday
	At      Clock
}

func (k TriggerKey) String() string {
	return fmt.Sprintf("%s/%s/%d@%s", k.TagID, k.Purpose, k.Day, k.At)
}

// Trigger is a compiled recurring job ready to be installed.
type Trigger struct {
	Key  TriggerKey
	Spec string
	Run  func()
}

// Runner is the recurring-trigger primitive. *cron.Cron satisfies it.
type Runner interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Remove(id cron.EntryID)
	Start()
	Stop() context.Context
}

type registeredTrigger struct {
	key TriggerKey
	id  cron.EntryID
}

// Registry tracks live triggers grouped by owning tag so they can be
// cancelled as a set.
type Registry struct {
	mu      sync.Mutex
	runner  Runner
	entries map[string][]registeredTrigger
}

// NewRegistry creates a registry that installs triggers on runner.
func NewRegistry(runner Runner) *Registry {
	return &Registry{
		runner:  runner,
		entries: make(map[string][]registeredTrigger),
	}
}

// Install registers a batch of triggers under ownerID. The owner must have
// no live triggers; call CancelAll first. If any trigger fails to register,
// the ones already added from this batch are removed again.
func (r *Registry) Install(ownerID string, triggers []Trigger) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries[ownerID]) > 0 {
		return fmt.Errorf("%w: %s", ErrOwnerInstalled, ownerID)
	}

	added := make([]registeredTrigger, 0, len(triggers))
	for _, t := range triggers {
		id, err := r.runner.AddFunc(t.Spec, t.Run)
		if err != nil {
			for _, a := range added {
				r.runner.Remove(a.id)
			}
			return fmt.Errorf("failed to register trigger %s (%q): %w", t.Key, t.Spec, err)
		}
		added = append(added, registeredTrigger{key: t.Key, id: id})
	}

	if len(added) > 0 {
		r.entries[ownerID] = added
	}

	log.Debug().Str("tag", ownerID).Int("triggers", len(added)).Msg("Triggers installed")
	return nil
}

// CancelAll removes every trigger registered under ownerID and returns how
// many were cancelled. Calling it for an owner with no triggers is a no-op.
func (r *Registry) CancelAll(ownerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.entries[ownerID]
	for _, e := range live {
		r.runner.Remove(e.id)
	}
	delete(r.entries, ownerID)

	if len(live) > 0 {
		log.Debug().Str("tag", ownerID).Int("triggers", len(live)).Msg("Triggers cancelled")
	}
	return len(live)
}

// CancelEverything removes all triggers for all owners.
func (r *Registry) CancelEverything() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for owner, live := range r.entries {
		for _, e := range live {
			r.runner.Remove(e.id)
		}
		n += len(live)
		delete(r.entries, owner)
	}
	return n
}

// Count returns the number of live triggers for ownerID.
func (r *Registry) Count(ownerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries[ownerID])
}

// Keys returns the keys of the live triggers for ownerID.
func (r *Registry) Keys(ownerID string) []TriggerKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]TriggerKey, 0, len(r.entries[ownerID]))
	for _, e := range r.entries[ownerID] {
		keys = append(keys, e.key)
	}
	return keys
}

// Owners returns the sorted ids of all owners with live triggers.
func (r *Registry) Owners() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	owners := make([]string, 0, len(r.entries))
	for owner := range r.entries {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

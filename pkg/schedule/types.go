// Package schedule implements the weekly ON/OFF scheduling engine: the
// schedule store, the trigger registry, the job compiler, the state
// reconciler, and the service that coordinates them.
package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urmzd/homai-scheduler/pkg/device"
)

// Time formats accepted for Schedule.TimeFormat (presentation only)
const (
	TimeFormat24h = "24h"
	TimeFormat12h = "12h"
)

// Weekday is a day of the week, 0 = Sunday through 6 = Saturday.
// It decodes from a JSON number or a numeric string and encodes as a string.
type Weekday int

func (d *Weekday) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("dayOfWeek must be a number or numeric string")
		}
		n, err = strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("dayOfWeek %q is not a number", s)
		}
	}
	if n < 0 || n > 6 {
		return fmt.Errorf("dayOfWeek %d out of range 0-6", n)
	}
	*d = Weekday(n)
	return nil
}

func (d Weekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(d)))
}

// Period is a weekly window on one day: the tag is ON from StartTime
// (inclusive) until EndTime (exclusive).
type Period struct {
	DayOfWeek Weekday `json:"dayOfWeek"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
}

// Active reports whether t falls inside the period. Periods never wrap
// past midnight, so a period whose end is not after its start never matches.
func (p Period) Active(t time.Time) bool {
	if int(t.Weekday()) != int(p.DayOfWeek) {
		return false
	}
	start, err := ParseClock(p.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseClock(p.EndTime)
	if err != nil {
		return false
	}
	now := ClockOf(t)
	return start <= now && now < end
}

// Schedule is the full ON/OFF rule set for one tag
type Schedule struct {
	TagID      string   `json:"tagId"`
	Name       string   `json:"name"`
	Periods    []Period `json:"periods"`
	OnValue    string   `json:"onValue"`
	OffValue   string   `json:"offValue"`
	TimeFormat string   `json:"timeFormat"`
}

// Active reports whether any period covers t.
func (s Schedule) Active(t time.Time) bool {
	for _, p := range s.Periods {
		if p.Active(t) {
			return true
		}
	}
	return false
}

// ValueAt returns the value the tag should hold at t.
func (s Schedule) ValueAt(t time.Time) string {
	if s.Active(t) {
		return s.OnValue
	}
	return s.OffValue
}

// Clone returns a deep copy with a non-nil period slice.
func (s Schedule) Clone() Schedule {
	out := s
	out.Periods = make([]Period, len(s.Periods))
	copy(out.Periods, s.Periods)
	return out
}

// Status is a schedule annotated with its live state
type Status struct {
	Schedule
	IsOn      bool                `json:"isOn"`
	LastWrite *device.WriteResult `json:"lastWrite,omitempty"`
}

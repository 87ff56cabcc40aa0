package schedule

import (
	"fmt"
	"strings"
)

// Validate checks required fields and clock syntax.
func (s Schedule) Validate() error {
	if strings.TrimSpace(s.TagID) == "" {
		return &ValidationError{Field: "tagId", Reason: "is required"}
	}
	if s.Periods == nil {
		return &ValidationError{Field: "periods", Reason: "must be an array"}
	}
	if s.OnValue == "" {
		return &ValidationError{Field: "onValue", Reason: "is required"}
	}
	if s.OffValue == "" {
		return &ValidationError{Field: "offValue", Reason: "is required"}
	}
	switch s.TimeFormat {
	case TimeFormat24h, TimeFormat12h:
	case "":
		return &ValidationError{Field: "timeFormat", Reason: "is required"}
	default:
		return &ValidationError{Field: "timeFormat", Reason: fmt.Sprintf("must be %q or %q", TimeFormat24h, TimeFormat12h)}
	}

	for i, p := range s.Periods {
		if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
			return &ValidationError{Field: fmt.Sprintf("periods[%d].dayOfWeek", i), Reason: "must be between 0 and 6"}
		}
		if _, err := ParseClock(p.StartTime); err != nil {
			return &ValidationError{Field: fmt.Sprintf("periods[%d].startTime", i), Reason: err.Error()}
		}
		if _, err := ParseClock(p.EndTime); err != nil {
			return &ValidationError{Field: fmt.Sprintf("periods[%d].endTime", i), Reason: err.Error()}
		}
	}
	return nil
}

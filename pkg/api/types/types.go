package types

import (
	"time"

	"github.com/urmzd/homai-scheduler/pkg/device"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
)

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Writer    string    `json:"writer"`
	Scheduler string    `json:"scheduler"`
	Timezone  string    `json:"timezone"`
	Schedules int       `json:"schedules"`
	ArmedTags int       `json:"armedTags"`
	Timestamp time.Time `json:"timestamp"`
}

// ScheduleResponse is returned from POST /schedules and PUT /schedules/:tagId.
// Warning is set when the change is live but could not be saved to disk.
type ScheduleResponse struct {
	Message  string            `json:"message"`
	Schedule schedule.Schedule `json:"schedule"`
	Warning  string            `json:"warning,omitempty"`
}

// DeleteResponse is returned from DELETE /schedules/:tagId
type DeleteResponse struct {
	Message string `json:"message"`
	TagID   string `json:"tagId"`
	Warning string `json:"warning,omitempty"`
}

// ReconcileResponse is returned from POST /schedules/reconcile
type ReconcileResponse struct {
	Results []device.WriteResult `json:"results"`
	Failed  int                  `json:"failed"`
}

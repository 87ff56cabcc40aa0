package mcp

import (
	"github.com/urmzd/homai-scheduler/pkg/device"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
)

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status (healthy or unhealthy)"`
	Writer    string `json:"writer" jsonschema:"description=Tag writer connection status"`
	Scheduler string `json:"scheduler" jsonschema:"description=Scheduler runtime status"`
	Timezone  string `json:"timezone" jsonschema:"description=Timezone schedules are evaluated in"`
	Schedules int    `json:"schedules" jsonschema:"description=Number of stored schedules"`
	ArmedTags int    `json:"armedTags" jsonschema:"description=Number of tags with live triggers"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// ListSchedulesOutput is the output for the list_schedules tool
type ListSchedulesOutput struct {
	Schedules []schedule.Status `json:"schedules" jsonschema:"description=All schedules with their live state"`
	Count     int               `json:"count" jsonschema:"description=Number of schedules"`
}

// GetScheduleOutput is the output for the get_schedule tool
type GetScheduleOutput struct {
	Schedule schedule.Status `json:"schedule"`
}

// SetScheduleOutput is the output for the set_schedule tool
type SetScheduleOutput struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Schedule schedule.Schedule `json:"schedule"`
	Warning  string            `json:"warning,omitempty" jsonschema:"description=Set when the change is live but was not saved to disk"`
}

// DeleteScheduleOutput is the output for the delete_schedule tool
type DeleteScheduleOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

// ReconcileOutput is the output for the reconcile_now tool
type ReconcileOutput struct {
	Results []device.WriteResult `json:"results"`
	Failed  int                  `json:"failed"`
}

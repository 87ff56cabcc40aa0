package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	writer := "disconnected"
	if s.svc.Connected() {
		writer = "connected"
	}
	scheduler := "stopped"
	if s.svc.Ready() {
		scheduler = "running"
	}

	status := "healthy"
	if writer != "connected" || scheduler != "running" {
		status = "unhealthy"
	}

	stats := s.svc.Stats()
	out := GetHealthOutput{
		Status:    status,
		Writer:    writer,
		Scheduler: scheduler,
		Timezone:  s.svc.Location().String(),
		Schedules: stats.Schedules,
		ArmedTags: stats.ArmedTags,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListSchedules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schedules := s.svc.List()
	out := ListSchedulesOutput{
		Schedules: schedules,
		Count:     len(schedules),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tagID, err := requiredString(request, "tag_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	st, err := s.svc.Get(tagID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatJSON(GetScheduleOutput{Schedule: st})), nil
}

func (s *Server) handleSetSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tagID, err := requiredString(request, "tag_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	doc := map[string]any{
		"tagId":      tagID,
		"name":       args["name"],
		"periods":    args["periods"],
		"onValue":    args["on_value"],
		"offValue":   args["off_value"],
		"timeFormat": args["time_format"],
	}
	if doc["name"] == nil {
		delete(doc, "name")
	}
	if doc["timeFormat"] == nil {
		doc["timeFormat"] = schedule.TimeFormat24h
	}

	sch, err := s.decodeSchedule(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validation error: %s", err)), nil
	}

	stored, err := s.svc.Put(ctx, sch)
	out := SetScheduleOutput{
		Success:  true,
		Message:  fmt.Sprintf("Schedule for %q set with %d period(s)", stored.TagID, len(stored.Periods)),
		Schedule: stored,
	}
	if err != nil {
		if !schedule.IsPersistenceError(err) {
			return mcp.NewToolResultError(fmt.Sprintf("failed to set schedule: %s", err)), nil
		}
		out.Warning = err.Error()
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleDeleteSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tagID, err := requiredString(request, "tag_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := DeleteScheduleOutput{
		Success: true,
		Message: fmt.Sprintf("Schedule for %q deleted", tagID),
	}
	if err := s.svc.Delete(ctx, tagID); err != nil {
		if !schedule.IsPersistenceError(err) {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete schedule: %s", err)), nil
		}
		out.Warning = err.Error()
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleReconcileNow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.svc.Reconcile(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reconcile: %s", err)), nil
	}

	out := ReconcileOutput{Results: results}
	for _, r := range results {
		if !r.OK {
			out.Failed++
		}
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- helpers ---

// decodeSchedule validates doc against the create schema and decodes it.
// The arguments are re-encoded so the validator sees json.Number values.
func (s *Server) decodeSchedule(doc map[string]any) (schedule.Schedule, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return schedule.Schedule{}, err
	}

	payload, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return schedule.Schedule{}, err
	}
	if err := s.validator.ValidateCreate(payload); err != nil {
		return schedule.Schedule{}, err
	}

	var sch schedule.Schedule
	if err := json.Unmarshal(raw, &sch); err != nil {
		return schedule.Schedule{}, err
	}
	return sch, nil
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}

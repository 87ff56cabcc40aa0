package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check whether the scheduler is running and the tag writer is connected"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_schedules",
			mcp.WithDescription("List every tag schedule and whether it is on right now"),
		),
		s.handleListSchedules,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_schedule",
			mcp.WithDescription("Get one tag's schedule, its current state and its last write"),
			mcp.WithString("tag_id",
				mcp.Required(),
				mcp.Description("Tag ID"),
			),
		),
		s.handleGetSchedule,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_schedule",
			mcp.WithDescription("Create or replace a tag's weekly ON/OFF schedule. The new rule is applied immediately."),
			mcp.WithString("tag_id",
				mcp.Required(),
				mcp.Description("Tag ID"),
			),
			mcp.WithString("name",
				mcp.Description("Display name (optional)"),
			),
			mcp.WithArray("periods",
				mcp.Required(),
				mcp.Description("Weekly ON windows. Each has dayOfWeek (0=Sunday..6=Saturday), startTime and endTime as HH:mm; end is exclusive."),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"dayOfWeek": map[string]any{"type": "string", "pattern": "^[0-6]$"},
						"startTime": map[string]any{"type": "string"},
						"endTime":   map[string]any{"type": "string"},
					},
					"required": []string{"dayOfWeek", "startTime", "endTime"},
				}),
			),
			mcp.WithString("on_value",
				mcp.Required(),
				mcp.Description("Value written when a period starts"),
			),
			mcp.WithString("off_value",
				mcp.Required(),
				mcp.Description("Value written when a period ends"),
			),
			mcp.WithString("time_format",
				mcp.Description("Display time format (default 24h)"),
				mcp.Enum("24h", "12h"),
			),
		),
		s.handleSetSchedule,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_schedule",
			mcp.WithDescription("Delete a tag's schedule. The tag keeps its current value."),
			mcp.WithString("tag_id",
				mcp.Required(),
				mcp.Description("Tag ID"),
			),
		),
		s.handleDeleteSchedule,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("reconcile_now",
			mcp.WithDescription("Write the value every scheduled tag should hold at this moment"),
		),
		s.handleReconcileNow,
	)
}

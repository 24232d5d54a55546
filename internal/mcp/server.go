package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nick-dorsch/slotplan/internal/calendar"
	"github.com/nick-dorsch/slotplan/internal/importer"
	"github.com/nick-dorsch/slotplan/internal/planner"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

const Version = "0.1.0"

// NewServer creates a new MCP server exposing the planner as tools.
func NewServer(svc *planner.Service, staging *importer.StagingManager) *server.MCPServer {
	s := server.NewMCPServer("Slotplan", Version)

	// Task management
	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task. It is placed automatically in the first free slot at or after its preferred date."),
		mcp.WithString("name", mcp.Description("Task name"), mcp.Required()),
		mcp.WithNumber("duration", mcp.Description("Duration in hours, rounded to the nearest half hour"), mcp.Required()),
		mcp.WithString("preferred_date", mcp.Description("Earliest date to schedule on (YYYY-MM-DD)")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
		mcp.WithString("task_type", mcp.Description("Task type, used to pick a qualified team member")),
		mcp.WithString("assigned_to", mcp.Description("Assign to this member instead of picking automatically")),
	), createTaskHandler(svc))

	s.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Update a task. Omitted fields keep their value. A scheduled task is rescheduled with the new settings."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithNumber("duration", mcp.Description("New duration in hours")),
		mcp.WithString("preferred_date", mcp.Description("New preferred date (YYYY-MM-DD); empty string clears it")),
		mcp.WithString("notes", mcp.Description("New notes")),
		mcp.WithString("task_type", mcp.Description("New task type")),
		mcp.WithString("assigned_to", mcp.Description("New assignee; empty string clears it")),
	), updateTaskHandler(svc))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
	), deleteTaskHandler(svc))

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a single task by ID."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
	), getTaskHandler(svc))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks with optional filters."),
		mcp.WithString("date", mcp.Description("Only tasks scheduled on this date (YYYY-MM-DD)")),
		mcp.WithString("assigned_to", mcp.Description("Only tasks assigned to this member")),
		mcp.WithBoolean("unscheduled", mcp.Description("Only tasks without a slot")),
	), listTasksHandler(svc))

	// Manual placement
	s.AddTool(mcp.NewTool("reschedule_task",
		mcp.WithDescription("Move a task to an exact start time. No conflict check is made."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("start", mcp.Description("New start (YYYY-MM-DDTHH:MM[:SS])"), mcp.Required()),
	), rescheduleTaskHandler(svc))

	s.AddTool(mcp.NewTool("resize_task",
		mcp.WithDescription("Change a scheduled task's end time. The duration is rounded to the nearest half hour."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("end", mcp.Description("New end (YYYY-MM-DDTHH:MM[:SS])"), mcp.Required()),
	), resizeTaskHandler(svc))

	s.AddTool(mcp.NewTool("find_slot",
		mcp.WithDescription("Preview the slot a task would get, without creating or moving anything."),
		mcp.WithNumber("duration", mcp.Description("Duration in hours"), mcp.Required()),
		mcp.WithString("preferred_date", mcp.Description("Earliest date (YYYY-MM-DD)")),
		mcp.WithString("exclude_id", mcp.Description("Ignore this task's current slot")),
	), findSlotHandler(svc))

	// Team
	s.AddTool(mcp.NewTool("assign_task",
		mcp.WithDescription("Assign a task. Without a member, the qualified member with the fewest tasks that day is picked."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("member", mcp.Description("Member to assign")),
		mcp.WithBoolean("clear", mcp.Description("Remove the current assignment")),
	), assignTaskHandler(svc))

	s.AddTool(mcp.NewTool("list_task_types",
		mcp.WithDescription("List the known task types."),
	), listTaskTypesHandler(svc))

	s.AddTool(mcp.NewTool("list_qualified_members",
		mcp.WithDescription("List the members qualified for a task type, in priority order."),
		mcp.WithString("task_type", mcp.Description("Task type"), mcp.Required()),
	), listQualifiedMembersHandler(svc))

	s.AddTool(mcp.NewTool("list_team_members",
		mcp.WithDescription("List all team members and their profiles."),
	), listTeamMembersHandler(svc))

	// Views
	s.AddTool(mcp.NewTool("get_calendar_events",
		mcp.WithDescription("Get scheduled tasks as calendar events."),
		mcp.WithString("from", mcp.Description("First date to include (YYYY-MM-DD)")),
		mcp.WithString("to", mcp.Description("Last date to include (YYYY-MM-DD)")),
	), getCalendarEventsHandler(svc))

	s.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Get task totals: all, scheduled, hours, and tasks in the coming week."),
	), getStatsHandler(svc))

	// Import staging
	s.AddTool(mcp.NewTool("stage_import_row",
		mcp.WithDescription("Stage one spreadsheet-style row for import. Column names such as 'Task Name', 'Duration (hours)' and 'Preferred Date' are recognised. Call 'commit_staged_import' to apply."),
		mcp.WithObject("row", mcp.Description("Row as column name to value"), mcp.Required()),
		mcp.WithString("session_id", mcp.Description("Session ID for staging rows (defaults to 'default').")),
	), stageImportRowHandler(staging))

	s.AddTool(mcp.NewTool("list_staged_import",
		mcp.WithDescription("List the rows staged for a session."),
		mcp.WithString("session_id", mcp.Description("Session ID (defaults to 'default').")),
	), listStagedImportHandler(staging))

	s.AddTool(mcp.NewTool("commit_staged_import",
		mcp.WithDescription("Import all staged rows of a session in order, scheduling each one."),
		mcp.WithString("session_id", mcp.Description("Session ID (defaults to 'default').")),
	), commitStagedImportHandler(svc, staging))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

type commandResponse struct {
	*planner.Result
	SaveError string `json:"save_error,omitempty"`
}

func commandResult(res *planner.Result, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp := commandResponse{Result: res}
	if res.SaveErr != nil {
		resp.SaveError = res.SaveErr.Error()
	}
	return jsonResult(resp)
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

func optionalString(args map[string]any, key string) *string {
	v, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func createTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in := planner.TaskInput{
			Name:          mcp.ParseString(request, "name", ""),
			Duration:      mcp.ParseFloat64(request, "duration", 0),
			PreferredDate: models.StringPtr(mcp.ParseString(request, "preferred_date", "")),
			Notes:         mcp.ParseString(request, "notes", ""),
			TaskType:      mcp.ParseString(request, "task_type", ""),
			AssignedTo:    models.StringPtr(mcp.ParseString(request, "assigned_to", "")),
		}
		return commandResult(svc.Dispatch(ctx, planner.CreateTask{Input: in}))
	}
}

func updateTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		args := arguments(request)
		patch := func(in *planner.TaskInput) error {
			if v := optionalString(args, "name"); v != nil {
				in.Name = *v
			}
			if v, ok := args["duration"].(float64); ok {
				in.Duration = v
			}
			if v := optionalString(args, "preferred_date"); v != nil {
				in.PreferredDate = models.StringPtr(*v)
			}
			if v := optionalString(args, "notes"); v != nil {
				in.Notes = *v
			}
			if v := optionalString(args, "task_type"); v != nil {
				in.TaskType = *v
			}
			if v := optionalString(args, "assigned_to"); v != nil {
				in.AssignedTo = models.StringPtr(*v)
			}
			return nil
		}

		return commandResult(svc.Dispatch(ctx, planner.UpdateTask{ID: id, Patch: patch}))
	}
}

func deleteTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		res, err := svc.Dispatch(ctx, planner.DeleteTask{ID: id})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res.SaveErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Task '%s' deleted but not saved: %v", res.Task.Name, res.SaveErr)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' deleted successfully", res.Task.Name)), nil
	}
}

func getTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := svc.Get(mcp.ParseString(request, "id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(t)
	}
}

func listTasksHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date := mcp.ParseString(request, "date", "")
		member := mcp.ParseString(request, "assigned_to", "")
		unscheduled := mcp.ParseBoolean(request, "unscheduled", false)

		tasks := []models.Task{}
		for _, t := range svc.Tasks() {
			if date != "" && models.StringValue(t.ScheduledDate) != date {
				continue
			}
			if member != "" && t.Assignee() != member {
				continue
			}
			if unscheduled && t.IsScheduled() {
				continue
			}
			tasks = append(tasks, t)
		}
		return jsonResult(map[string]any{"tasks": tasks})
	}
}

func rescheduleTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start, err := calendar.ParseInstant(mcp.ParseString(request, "start", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id := mcp.ParseString(request, "id", "")
		return commandResult(svc.Dispatch(ctx, planner.DragReschedule{ID: id, Start: start}))
	}
}

func resizeTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		end, err := calendar.ParseInstant(mcp.ParseString(request, "end", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id := mcp.ParseString(request, "id", "")
		return commandResult(svc.Dispatch(ctx, planner.ResizeDuration{ID: id, End: end}))
	}
}

func findSlotHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		duration := mcp.ParseFloat64(request, "duration", 0)
		preferred := models.StringPtr(mcp.ParseString(request, "preferred_date", ""))
		exclude := mcp.ParseString(request, "exclude_id", "")

		slot, ok, err := svc.FindSlot(duration, preferred, exclude)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"slot": slot, "available": ok})
	}
}

func assignTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := planner.AssignTask{
			ID:     mcp.ParseString(request, "id", ""),
			Member: strings.TrimSpace(mcp.ParseString(request, "member", "")),
			Clear:  mcp.ParseBoolean(request, "clear", false),
		}
		return commandResult(svc.Dispatch(ctx, cmd))
	}
}

func listTaskTypesHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		types := svc.Registry().TaskTypes()
		if types == nil {
			types = []string{}
		}
		return jsonResult(map[string]any{"task_types": types})
	}
}

func listQualifiedMembersHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskType := mcp.ParseString(request, "task_type", "")
		return jsonResult(map[string]any{
			"task_type": taskType,
			"members":   svc.Registry().QualifiedMembers(taskType),
		})
	}
}

func listTeamMembersHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		members := svc.Registry().Members()
		if members == nil {
			members = []models.MemberProfile{}
		}
		return jsonResult(map[string]any{"members": members})
	}
}

func getCalendarEventsHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from := mcp.ParseString(request, "from", "")
		to := mcp.ParseString(request, "to", "")

		events := []models.CalendarEvent{}
		for _, ev := range svc.Events() {
			day := ev.Start[:len(models.DateLayout)]
			if from != "" && day < from {
				continue
			}
			if to != "" && day > to {
				continue
			}
			events = append(events, ev)
		}
		return jsonResult(map[string]any{"events": events})
	}
}

func getStatsHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(svc.Stats())
	}
}

func stageImportRowHandler(staging *importer.StagingManager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := mcp.ParseString(request, "session_id", "default")
		row, ok := arguments(request)["row"].(map[string]any)
		if !ok || len(row) == 0 {
			return mcp.NewToolResultError("row must be a non-empty object"), nil
		}

		n := staging.Add(sessionID, row)
		return mcp.NewToolResultText(fmt.Sprintf("Row staged for session '%s' (%d staged). Stage another or call 'commit_staged_import' to apply.", sessionID, n)), nil
	}
}

func listStagedImportHandler(staging *importer.StagingManager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := mcp.ParseString(request, "session_id", "default")
		return jsonResult(map[string]any{"session_id": sessionID, "rows": staging.Peek(sessionID)})
	}
}

func commitStagedImportHandler(svc *planner.Service, staging *importer.StagingManager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := mcp.ParseString(request, "session_id", "default")
		rows := staging.GetAndClear(sessionID)
		if len(rows) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("No rows staged for session '%s'", sessionID)), nil
		}
		return commandResult(svc.Dispatch(ctx, planner.ImportBatch{Rows: rows}))
	}
}

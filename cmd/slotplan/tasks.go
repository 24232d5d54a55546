package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nick-dorsch/slotplan/internal/calendar"
	"github.com/nick-dorsch/slotplan/internal/db"
	"github.com/nick-dorsch/slotplan/internal/export"
	"github.com/nick-dorsch/slotplan/internal/importer"
	"github.com/nick-dorsch/slotplan/internal/planner"
	"github.com/nick-dorsch/slotplan/internal/ui"
	"github.com/nick-dorsch/slotplan/internal/ui/components"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

func describeSlot(t *models.Task) string {
	if !t.IsScheduled() {
		return "unscheduled"
	}
	return *t.ScheduledDate + " " + *t.ScheduledTime
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "Task name (required)")
	duration := fs.Float64("duration", 0, "Duration in hours (required)")
	date := fs.String("date", "", "Preferred date (YYYY-MM-DD)")
	notes := fs.String("notes", "", "Notes")
	taskType := fs.String("type", "", "Task type")
	assign := fs.String("assign", "", "Assign to this member instead of picking automatically")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app) error {
		res, err := a.svc.Dispatch(ctx, planner.CreateTask{Input: planner.TaskInput{
			Name:          *name,
			Duration:      *duration,
			PreferredDate: models.StringPtr(*date),
			Notes:         *notes,
			TaskType:      *taskType,
			AssignedTo:    models.StringPtr(*assign),
		}})
		if err != nil {
			return err
		}
		t := res.Task
		fmt.Fprintf(stdout, "✓ Created task %s %q (%gh) %s", t.ID, t.Name, t.Duration, describeSlot(t))
		if t.AssignedTo != nil {
			fmt.Fprintf(stdout, " @%s", *t.AssignedTo)
		}
		fmt.Fprintln(stdout)
		return report(res)
	})
}

func runEdit(args []string) error {
	id, rest, err := requireID(args, "slotplan edit <id> [-name ...] [-duration ...] [-date ...] [-notes ...] [-type ...] [-assign ...]")
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "New name")
	duration := fs.Float64("duration", 0, "New duration in hours")
	date := fs.String("date", "", "New preferred date; empty clears it")
	notes := fs.String("notes", "", "New notes")
	taskType := fs.String("type", "", "New task type")
	assign := fs.String("assign", "", "New assignee; empty clears it")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return withApp(func(ctx context.Context, a *app) error {
		patch := func(in *planner.TaskInput) error {
			if set["name"] {
				in.Name = *name
			}
			if set["duration"] {
				in.Duration = *duration
			}
			if set["date"] {
				in.PreferredDate = models.StringPtr(*date)
			}
			if set["notes"] {
				in.Notes = *notes
			}
			if set["type"] {
				in.TaskType = *taskType
			}
			if set["assign"] {
				in.AssignedTo = models.StringPtr(*assign)
			}
			return nil
		}

		res, err := a.svc.Dispatch(ctx, planner.UpdateTask{ID: id, Patch: patch})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Updated task %s %q %s\n", res.Task.ID, res.Task.Name, describeSlot(res.Task))
		return report(res)
	})
}

func runDelete(args []string) error {
	id, _, err := requireID(args, "slotplan delete <id>")
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		res, err := a.svc.Dispatch(ctx, planner.DeleteTask{ID: id})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Deleted task %s %q\n", res.Task.ID, res.Task.Name)
		return report(res)
	})
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	date := fs.String("date", "", "Only tasks scheduled on this date")
	member := fs.String("member", "", "Only tasks assigned to this member")
	unscheduled := fs.Bool("unscheduled", false, "Only unscheduled tasks")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app) error {
		var tasks []models.Task
		for _, t := range a.svc.Tasks() {
			if *date != "" && models.StringValue(t.ScheduledDate) != *date {
				continue
			}
			if *member != "" && t.Assignee() != *member {
				continue
			}
			if *unscheduled && t.IsScheduled() {
				continue
			}
			tasks = append(tasks, t)
		}

		if *asJSON {
			if tasks == nil {
				tasks = []models.Task{}
			}
			return printJSON(tasks)
		}

		fmt.Fprintf(stdout, "%-36s %-24s %6s %-19s %-12s %-12s\n", "ID", "NAME", "HOURS", "SLOT", "TYPE", "ASSIGNED")
		fmt.Fprintln(stdout, strings.Repeat("-", 114))
		for _, t := range tasks {
			fmt.Fprintf(stdout, "%-36s %-24s %6g %-19s %-12s %-12s\n",
				t.ID, t.Name, t.Duration, describeSlot(&t), t.TaskType, t.Assignee())
		}
		return nil
	})
}

func runAgenda(args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		return ui.RunAgenda(a.svc.Tasks())
	})
}

func runMove(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: slotplan move <id> <YYYY-MM-DDTHH:MM>")
	}
	start, err := calendar.ParseInstant(args[1])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		res, err := a.svc.Dispatch(ctx, planner.DragReschedule{ID: args[0], Start: start})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Moved task %s to %s\n", res.Task.ID, describeSlot(res.Task))
		return report(res)
	})
}

func runResize(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: slotplan resize <id> <YYYY-MM-DDTHH:MM>")
	}
	end, err := calendar.ParseInstant(args[1])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		res, err := a.svc.Dispatch(ctx, planner.ResizeDuration{ID: args[0], End: end})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Resized task %s to %gh\n", res.Task.ID, res.Task.Duration)
		return report(res)
	})
}

func runAssign(args []string) error {
	id, rest, err := requireID(args, "slotplan assign <id> [member] [-clear]")
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("assign", flag.ContinueOnError)
	fs.SetOutput(stderr)
	clearFlag := fs.Bool("clear", false, "Remove the current assignment")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app) error {
		res, err := a.svc.Dispatch(ctx, planner.AssignTask{
			ID:     id,
			Member: strings.TrimSpace(fs.Arg(0)),
			Clear:  *clearFlag,
		})
		if err != nil {
			return err
		}
		if res.Task.AssignedTo == nil {
			fmt.Fprintf(stdout, "✓ Task %s is unassigned\n", res.Task.ID)
		} else {
			fmt.Fprintf(stdout, "✓ Assigned task %s to %s\n", res.Task.ID, *res.Task.AssignedTo)
		}
		return report(res)
	})
}

func runImport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: slotplan import <file.xlsx|file.csv|file.json>")
	}
	rows, err := importer.ReadFile(args[0])
	if err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app) error {
		res, err := a.svc.Dispatch(ctx, planner.ImportBatch{Rows: rows})
		if err != nil {
			return err
		}
		summary := components.NewImportSummary(72)
		summary.Title = "Import " + filepath.Base(args[0])
		summary.Imported = res.Imported
		summary.Skipped = res.Skipped
		summary.Notices = res.Notices
		fmt.Fprintln(stdout, summary.View())
		if res.SaveErr != nil {
			return res.SaveErr
		}
		return nil
	})
}

func runExport(args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		path := export.FileName(time.Now())
		if len(args) > 0 {
			path = args[0]
		}
		tasks := a.svc.Tasks()
		if err := export.WriteFile(path, tasks); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Exported %d tasks to %s\n", len(tasks), path)
		return nil
	})
}

func runEvents(args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		events := a.svc.Events()
		if events == nil {
			events = []models.CalendarEvent{}
		}
		return printJSON(events)
	})
}

func runMembers(args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		reg := a.svc.Registry()
		if reg.IsEmpty() {
			fmt.Fprintf(stdout, "No qualifications loaded (%s)\n", a.cfg.Qualifications.Path)
			return nil
		}

		fmt.Fprintf(stdout, "%-20s %-20s %-30s\n", "MEMBER", "ROLE", "EMAIL")
		fmt.Fprintln(stdout, strings.Repeat("-", 72))
		for _, m := range reg.Members() {
			fmt.Fprintf(stdout, "%-20s %-20s %-30s\n", m.Name, m.Role, m.Email)
		}

		fmt.Fprintln(stdout, "\nTask types:")
		for _, tt := range reg.TaskTypes() {
			fmt.Fprintf(stdout, "  %-18s %s\n", tt, strings.Join(reg.QualifiedMembers(tt), ", "))
		}
		return nil
	})
}

func runSlot(args []string) error {
	fs := flag.NewFlagSet("slot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	duration := fs.Float64("duration", 1, "Duration in hours")
	date := fs.String("date", "", "Preferred date (YYYY-MM-DD)")
	exclude := fs.String("exclude", "", "Ignore this task's current slot")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app) error {
		slot, ok, err := a.svc.FindSlot(*duration, models.StringPtr(*date), *exclude)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "No free slot in the lookahead window")
			return nil
		}
		fmt.Fprintf(stdout, "%s %s", slot.Date, slot.Time)
		if slot.Fallback {
			fmt.Fprint(stdout, " (fallback, not checked for conflicts)")
		}
		fmt.Fprintln(stdout)
		return nil
	})
}

func runStatus(args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		stats := a.svc.Stats()

		fmt.Fprintln(stdout, "Slotplan Status")
		fmt.Fprintln(stdout, "===============")
		fmt.Fprintf(stdout, "Total Tasks:     %d\n", stats.TotalTasks)
		fmt.Fprintf(stdout, "Scheduled:       %d\n", stats.ScheduledTasks)
		fmt.Fprintf(stdout, "Total Hours:     %g\n", stats.TotalHours)
		fmt.Fprintf(stdout, "Next 7 Days:     %d\n", stats.WeekTasks)

		if database, ok := a.store.(*db.DB); ok {
			counts, err := database.CountTasks(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Assigned:        %d\n", counts.Assigned)
		}

		fmt.Fprintf(stdout, "\nStorage:         %s (%s)\n", a.cfg.Storage.Path, a.cfg.Storage.Driver)
		fmt.Fprintf(stdout, "Work Hours:      %02d:00-%02d:00\n", a.cfg.WorkHours.Start, a.cfg.WorkHours.End)
		return nil
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

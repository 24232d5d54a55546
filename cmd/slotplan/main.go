package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nick-dorsch/slotplan/internal/config"
	"github.com/nick-dorsch/slotplan/internal/db"
	"github.com/nick-dorsch/slotplan/internal/logging"
	"github.com/nick-dorsch/slotplan/internal/planner"
	"github.com/nick-dorsch/slotplan/internal/qualifications"
	"github.com/nick-dorsch/slotplan/internal/scheduler"
	"github.com/nick-dorsch/slotplan/internal/ui"
)

const defaultConfigPath = ".slotplan/config.yaml"

var (
	configPath string
	dbPath     string
	verbose    bool

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

type command struct {
	run   func(args []string) error
	usage string
}

var commands = map[string]command{
	"init":    {runInit, "Create .slotplan/ with a config, database and qualifications file"},
	"add":     {runAdd, "Add a task and schedule it"},
	"edit":    {runEdit, "Edit a task; scheduled tasks are rescheduled"},
	"delete":  {runDelete, "Delete a task"},
	"list":    {runList, "List tasks"},
	"agenda":  {runAgenda, "Browse the schedule day by day"},
	"move":    {runMove, "Move a task to an exact start time"},
	"resize":  {runResize, "Change a task's end time"},
	"assign":  {runAssign, "Assign a task to a team member"},
	"import":  {runImport, "Import tasks from .xlsx, .csv or .json"},
	"export":  {runExport, "Export all tasks to .json or .yaml"},
	"events":  {runEvents, "Print scheduled tasks as calendar events"},
	"members": {runMembers, "List team members and task types"},
	"slot":    {runSlot, "Preview the slot a task would get"},
	"status":  {runStatus, "Show task totals"},
	"mcp":     {runMCP, "Serve the planner as MCP tools on stdio"},
	"web":     {runWeb, "Serve the HTTP JSON API"},
}

func main() {
	if err := execute(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute(args []string, errOut io.Writer) error {
	fs := flag.NewFlagSet("slotplan", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&configPath, "config", defaultConfigPath, "Path to config file (.yaml or .json)")
	fs.StringVar(&dbPath, "db-path", "", "Path to the task store (overrides storage.path)")
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	fs.Usage = func() { printUsage(fs, errOut) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	var name string
	var rest []string
	if fs.NArg() == 0 {
		selected, err := ui.RunMenu()
		if err != nil {
			return fmt.Errorf("failed to run menu: %w", err)
		}
		if selected == "" {
			return nil
		}
		name = selected
	} else {
		name = fs.Arg(0)
		rest = fs.Args()[1:]
	}

	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	return cmd.run(rest)
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Usage: slotplan [flags] <command> [arguments]")
	fmt.Fprintln(w, "\nRunning `slotplan` with no command opens the menu.")
	fmt.Fprintln(w, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(w, "\nFlags:")
	fs.PrintDefaults()
}

// app is the wired planner shared by every command.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    db.Store
	registry *qualifications.Provider
	svc      *planner.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		WorkStartHour: cfg.WorkHours.Start,
		WorkEndHour:   cfg.WorkHours.End,
		LookaheadDays: cfg.LookaheadDays,
		SkipWeekends:  cfg.SkipWeekends,
		Strict:        cfg.StrictExhaust,
	}
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: stderr})

	store, err := db.OpenStore(ctx, cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if database, ok := store.(*db.DB); ok && cfg.SnapshotPath != "" {
		database.EnableAutoSnapshot(cfg.SnapshotPath, logging.Component(log, "snapshot"))
	}

	registry := qualifications.NewProvider(
		qualifications.LoadOrEmpty(cfg.Qualifications.Path, logging.Component(log, "qualifications")))

	sched := scheduler.New(schedulerConfig(cfg), scheduler.WithLogger(logging.Component(log, "scheduler")))
	svc := planner.New(sched,
		planner.WithLogger(logging.Component(log, "planner")),
		planner.WithRegistry(registry),
		planner.WithPersistence(store),
		planner.WithAutoAssign(cfg.AutoAssignEnabled()),
	)
	if err := svc.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}

	log.Debug().Str("driver", cfg.Storage.Driver).Str("path", cfg.Storage.Path).
		Int("tasks", len(svc.Tasks())).Msg("planner ready")
	return &app{cfg: cfg, log: log, store: store, registry: registry, svc: svc}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp opens the planner, runs fn and closes the store.
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// report prints a command result and fails when the change was applied but
// could not be saved.
func report(res *planner.Result) error {
	for _, n := range res.Notices {
		fmt.Fprintf(stdout, "! %s\n", n)
	}
	if res.SaveErr != nil {
		return res.SaveErr
	}
	return nil
}

func requireID(args []string, usage string) (string, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, fmt.Errorf("usage: %s", usage)
	}
	return args[0], args[1:], nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nick-dorsch/slotplan/internal/backup"
	"github.com/nick-dorsch/slotplan/internal/importer"
	"github.com/nick-dorsch/slotplan/internal/logging"
	"github.com/nick-dorsch/slotplan/internal/mcp"
	"github.com/nick-dorsch/slotplan/internal/qualifications"
	"github.com/nick-dorsch/slotplan/internal/server"
)

// startBackground runs the long-lived helpers of the serving modes: the
// qualifications watcher and the backup schedule. The returned func stops
// them and waits.
func startBackground(ctx context.Context, a *app) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	if a.cfg.Qualifications.Watch && a.cfg.Qualifications.Path != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log := logging.Component(a.log, "qualifications")
			if err := qualifications.Watch(ctx, a.cfg.Qualifications.Path, a.registry, log); err != nil {
				log.Error().Err(err).Msg("qualifications watcher stopped")
			}
		}()
	}

	var runner *backup.Runner
	if a.cfg.Backup.Schedule != "" {
		var err error
		runner, err = backup.New(a.cfg.Backup.Schedule, a.cfg.Backup.Dir, a.svc, logging.Component(a.log, "backup"))
		if err != nil {
			cancel()
			wg.Wait()
			return nil, err
		}
		runner.Start()
	}

	return func() {
		cancel()
		if runner != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Std())
			runner.Stop(stopCtx)
			stopCancel()
		}
		wg.Wait()
	}, nil
}

func runMCP(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stopBackground, err := startBackground(ctx, a)
	if err != nil {
		return err
	}
	defer stopBackground()

	s := mcp.NewServer(a.svc, importer.NewStagingManager())
	a.log.Info().Str("version", mcp.Version).Msg("mcp server on stdio")
	return mcp.Serve(s)
}

func runWeb(args []string) error {
	webFlags := flag.NewFlagSet("web", flag.ContinueOnError)
	webFlags.SetOutput(stderr)
	addr := webFlags.String("addr", "", "Address to listen on (overrides server.addr)")
	if err := webFlags.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	listen := a.cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}

	stopBackground, err := startBackground(ctx, a)
	if err != nil {
		return err
	}
	defer stopBackground()

	srv := server.NewServer(a.svc,
		server.WithRateLimit(a.cfg.Server.RatePerSec, a.cfg.Server.Burst),
		server.WithLogger(logging.Component(a.log, "http")),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(listen)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	a.log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codefionn/planrunner/internal/consts"
	"github.com/codefionn/planrunner/internal/events"
	"github.com/codefionn/planrunner/internal/lockfile"
	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/pidfile"
	"github.com/codefionn/planrunner/internal/pprof"
	"github.com/codefionn/planrunner/internal/server"
	"github.com/codefionn/planrunner/internal/supervisor"
	"github.com/codefionn/planrunner/internal/telemetry"
)

const shutdownTimeout = consts.Timeout5Seconds

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Global()

	addr := cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	lock := lockfile.New(cfg.LockfilePath())
	if err := lock.TryAcquire(addr); err != nil {
		return err
	}
	defer lock.Release()

	if cfg.Server.Pidfile != "" {
		pf := pidfile.New(cfg.Server.Pidfile)
		if err := pf.Write(); err != nil {
			return err
		}
		defer pf.Remove()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Warn("Tracing disabled: %v", err)
	} else {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = shutdownTracing(flushCtx)
		}()
	}

	if cfg.Server.PprofAddr != "" {
		prof := pprof.New(cfg.Server.PprofAddr, log)
		if err := prof.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = prof.Stop(stopCtx)
		}()
	}

	sinks, err := events.Open(cfg.Events, log)
	if err != nil {
		return err
	}
	defer sinks.Close()

	sup, err := supervisor.New(supervisor.ConfigFrom(cfg), sinks.Sink(), log)
	if err != nil {
		return err
	}
	sup.Start(ctx)
	defer sup.Stop()

	var journal server.EventStore
	if sinks.Journal != nil {
		journal = sinks.Journal
	}
	srv := server.New(addr, sup, journal, sinks.Hub, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Fprintf(os.Stderr, "planrunner serving on %s (spool %s)\n", addr, cfg.Supervisor.SpoolDir)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func (c *StopCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.Server.Pidfile == "" {
		return errors.New("server.pidfile is not configured")
	}
	if err := pidfile.New(cfg.Server.Pidfile).Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal server: %w", err)
	}
	fmt.Println("Sent SIGTERM to the server")
	return nil
}

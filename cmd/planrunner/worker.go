package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/worker"
)

func (c *WorkerCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	// stderr is the task's stderr.log.
	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), ""); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return worker.Run(ctx, worker.Options{
		InputPath:  c.Input,
		OutputPath: c.Output,
		Config:     cfg,
		Log:        logger.Global(),
	})
}

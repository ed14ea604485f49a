// Package worker is the body of one task process: it reads the spooled
// input, runs the agent in a dedicated working directory and publishes the
// output file the supervisor classifies.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/codefionn/planrunner/internal/agent"
	"github.com/codefionn/planrunner/internal/config"
	"github.com/codefionn/planrunner/internal/consts"
	"github.com/codefionn/planrunner/internal/llm"
	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/redact"
	"github.com/codefionn/planrunner/internal/runlog"
	"github.com/codefionn/planrunner/internal/sandbox"
	"github.com/codefionn/planrunner/internal/step"
	"github.com/codefionn/planrunner/internal/task"
	"github.com/codefionn/planrunner/internal/telemetry"
)

// Options locate the spool files and supply the collaborators of one run.
type Options struct {
	InputPath  string
	OutputPath string
	Config     *config.Config
	Log        *logger.Logger

	// Models overrides the configured language-model clients.
	Models *llm.Models
}

// Run executes the task described by the input file and writes the output
// file. The returned error is the one recorded in the output; the caller
// exits non-zero when it is set.
func Run(ctx context.Context, opts Options) error {
	log := opts.Log
	if log == nil {
		log = logger.Global()
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("worker: output path is required")
	}
	// The run changes into the work directory, so spool paths given relative
	// to the caller's directory must be resolved first.
	var err error
	if opts.OutputPath, err = filepath.Abs(opts.OutputPath); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	if opts.InputPath != "" {
		if opts.InputPath, err = filepath.Abs(opts.InputPath); err != nil {
			return fmt.Errorf("worker: %w", err)
		}
	}

	result, err := run(ctx, opts, log)
	out := task.Completed(result)
	if err != nil {
		log.Error("Task failed: %v", err)
		out = task.Failed(err)
	}
	if werr := task.WriteOutput(opts.OutputPath, out); werr != nil {
		log.Error("Failed to write output: %v", werr)
		if err == nil {
			err = werr
		}
	}
	return err
}

func run(ctx context.Context, opts Options, log *logger.Logger) (string, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	in, err := task.ReadInput(opts.InputPath)
	if err != nil {
		return "", err
	}
	log = log.WithPrefix("worker:" + logger.ShortID(in.TaskID))
	spool := task.DirPaths(filepath.Dir(opts.InputPath))

	workDir, err := prepareWorkDir(cfg.Worker.WorkDir, in.TaskID)
	if err != nil {
		return "", err
	}
	log.Info("Working in %s", workDir)

	if cfg.Worker.Landlock {
		box := sandbox.NewLandlockSandbox(sandbox.LandlockConfig{
			WorkDir:        workDir,
			SpoolDir:       spool.Dir,
			ReadOnlyPaths:  cfg.Worker.ReadOnlyPaths,
			ReadWritePaths: cfg.Worker.ReadWritePaths,
			BestEffort:     true,
		})
		if err := box.Restrict(); err != nil {
			return "", err
		}
		log.Info("Landlock applied to %d paths", len(box.AllowedPaths()))
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, attribute.String("planrunner.task_id", in.TaskID))
	if err != nil {
		log.Warn("Tracing disabled: %v", err)
	} else {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), consts.Timeout5Seconds)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				log.Warn("Failed to flush traces: %v", err)
			}
		}()
	}

	models := opts.Models
	if models == nil {
		if models, err = llm.NewModels(cfg.LLM); err != nil {
			return "", fmt.Errorf("failed to create model clients: %w", err)
		}
	}

	session := sandbox.NewSession(sandbox.SessionConfig{
		Dir:          workDir,
		Python:       cfg.Worker.Python,
		Shell:        cfg.Worker.Shell,
		ShellTimeout: cfg.Worker.ShellTimeout.Duration,
		Log:          log,
	})
	defer session.Close()
	// Shells share our process group, but a cancelled context must also
	// stop the kernel and any shell tree that outlives the signal.
	stop := context.AfterFunc(ctx, func() {
		log.Warn("Cancelled, closing execution state")
		_ = session.Close()
	})
	defer stop()

	rl, err := runlog.Open(spool.RunLogDir(), log)
	if err != nil {
		log.Warn("Run log disabled: %v", err)
	} else if cfg.Worker.RedactSecrets {
		rl.SetRedactor(redact.New(cfg.LLM.APIKey))
	}

	steps := step.NewRunner(models.Agent, session, step.Config{
		MaxIterations:   cfg.Agent.MaxIterationsPerStep,
		MaxTokens:       cfg.LLM.AgentMaxTokens,
		ReasoningEffort: cfg.LLM.ReasoningEffort,
	}, rl, log)
	a := agent.New(models, steps, session, agent.Config{
		MaxTotalSteps:       cfg.Agent.MaxTotalSteps,
		StructuredMaxTokens: cfg.LLM.StructuredMaxTokens,
	}, rl, log)

	started := time.Now()
	result, err := a.Run(ctx, in.Task)
	if err != nil {
		return "", err
	}
	log.Info("Finished in %s", time.Since(started).Round(time.Millisecond))
	return result, nil
}

// prepareWorkDir creates <root>/<taskID> and makes it the process's working
// directory, so relative paths in model code land there.
func prepareWorkDir(root, taskID string) (string, error) {
	if root == "" {
		root = "work"
	}
	abs, err := filepath.Abs(filepath.Join(root, taskID))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	if err := os.Chdir(abs); err != nil {
		return "", fmt.Errorf("failed to enter work directory: %w", err)
	}
	return abs, nil
}

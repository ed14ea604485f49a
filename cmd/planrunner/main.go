// Package main is the entry point of the planrunner binary: the supervisor
// server, the per-task worker and a small HTTP client.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/codefionn/planrunner/internal/config"
	"github.com/codefionn/planrunner/internal/logger"
)

// Build-time variables (set via ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("planrunner"),
		kong.Description("Runs language-model agent tasks in supervised worker processes."),
		kong.UsageOnError(),
		kongVars(),
	)
	err := ctx.Run(&cli.Globals)
	if closeErr := logger.Global().Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
	}
	ctx.FatalIfErrorf(err)
}

// loadConfig reads the configuration named by --config or PLANRUNNER_CONFIG.
func loadConfig(g *Globals) (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(g.Config))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Printf("planrunner %s (%s)\n", version, commit)
	return nil
}

package main

import (
	"time"

	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `short:"c" help:"Config file (.json, .toml, .yaml). Defaults to $PLANRUNNER_CONFIG." type:"path"`
}

// ClientFlags locate a running server.
type ClientFlags struct {
	Server string `short:"s" default:"http://localhost:8000" env:"PLANRUNNER_SERVER" help:"Server base URL"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" help:"Run the supervisor and the HTTP API"`
	Worker  WorkerCmd  `cmd:"" hidden:"" help:"Run one task (started by the supervisor)"`
	Run     RunCmd     `cmd:"" help:"Submit a task"`
	Status  StatusCmd  `cmd:"" help:"Show the status of a task"`
	Tasks   TasksCmd   `cmd:"" help:"List tasks"`
	Health  HealthCmd  `cmd:"" help:"Show supervisor load"`
	Reset   ResetCmd   `cmd:"" help:"Clear all tasks and kill running workers"`
	Stop    StopCmd    `cmd:"" help:"Ask the server named by server.pidfile to shut down"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// ServeCmd runs the supervisor.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides server.addr)"`
}

// WorkerCmd runs a single task from its spool files.
type WorkerCmd struct {
	Input  string `required:"" type:"path" help:"Worker input file"`
	Output string `required:"" type:"path" help:"Worker output file"`
}

// RunCmd submits a task.
type RunCmd struct {
	ClientFlags
	Task     string        `arg:"" help:"Task description"`
	Wait     bool          `short:"w" help:"Wait for the task to finish"`
	Interval time.Duration `default:"2s" help:"Polling interval with --wait"`
}

// StatusCmd shows one task.
type StatusCmd struct {
	ClientFlags
	TaskID string `arg:"" help:"Task ID"`
}

// TasksCmd lists tasks.
type TasksCmd struct {
	ClientFlags
}

// HealthCmd shows the load snapshot.
type HealthCmd struct {
	ClientFlags
}

// ResetCmd resets the server.
type ResetCmd struct {
	ClientFlags
}

// StopCmd signals a running server through its pidfile.
type StopCmd struct{}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}

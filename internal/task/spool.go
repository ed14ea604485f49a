package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File names inside a task's spool directory.
const (
	InputFile  = "input.json"
	OutputFile = "output.json"
	StdoutFile = "stdout.log"
	StderrFile = "stderr.log"
	RunDir     = "run"
)

// SpoolPaths locates the files exchanged with one worker.
type SpoolPaths struct {
	Dir    string
	Input  string
	Output string
	Stdout string
	Stderr string
}

// Paths returns the spool layout of taskID below root.
func Paths(root, taskID string) SpoolPaths {
	return DirPaths(filepath.Join(root, taskID))
}

// DirPaths returns the spool layout of an existing task directory.
func DirPaths(dir string) SpoolPaths {
	return SpoolPaths{
		Dir:    dir,
		Input:  filepath.Join(dir, InputFile),
		Output: filepath.Join(dir, OutputFile),
		Stdout: filepath.Join(dir, StdoutFile),
		Stderr: filepath.Join(dir, StderrFile),
	}
}

// RunLogDir returns the directory holding plan, decision and step logs.
func (p SpoolPaths) RunLogDir() string {
	return filepath.Join(p.Dir, RunDir)
}

// WorkerInput is the content of input.json.
type WorkerInput struct {
	TaskID string `json:"task_id"`
	Task   string `json:"task"`
}

// WorkerOutput is the content of output.json.
type WorkerOutput struct {
	Status State   `json:"status"`
	Result *string `json:"result,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// Completed builds the success output.
func Completed(result string) WorkerOutput {
	return WorkerOutput{Status: StateCompleted, Result: &result}
}

// Failed builds the failure output.
func Failed(err error) WorkerOutput {
	msg := err.Error()
	return WorkerOutput{Status: StateFailed, Error: &msg}
}

// WriteInput creates the spool directory and serializes the worker input.
func WriteInput(paths SpoolPaths, in WorkerInput) error {
	if err := os.MkdirAll(paths.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	if err := os.WriteFile(paths.Input, data, 0644); err != nil {
		return fmt.Errorf("failed to write worker input: %w", err)
	}
	return nil
}

// ReadInput loads and checks a worker input file.
func ReadInput(path string) (WorkerInput, error) {
	var in WorkerInput
	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("failed to read worker input: %w", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("failed to parse worker input: %w", err)
	}
	if in.TaskID == "" {
		return in, errors.New("worker input has no task_id")
	}
	return in, nil
}

// WriteOutput writes the worker output atomically: a reader never observes
// a partially written file.
func WriteOutput(path string, out WorkerOutput) error {
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".output-*.json")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to publish output file: %w", err)
	}
	return nil
}

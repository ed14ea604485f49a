// Package sandbox executes model-written code for a worker. Python blocks
// run in one persistent kernel process whose namespace survives between
// blocks; shell blocks run as one-shot bash processes. Landlock can
// additionally confine the whole worker on Linux.
package sandbox

import (
	"context"
	"errors"

	"github.com/codefionn/planrunner/internal/typeexpr"
)

// ErrKernelUnavailable is returned when the python kernel cannot be started.
var ErrKernelUnavailable = errors.New("python kernel unavailable")

// Result is the uniform outcome of executing one block.
type Result struct {
	Stdout string
	Stderr string

	// Changed lists namespace names whose fingerprint changed, sorted.
	// Shell blocks never change the namespace.
	Changed []string
}

// Executor runs one kind of code block.
type Executor interface {
	Execute(ctx context.Context, code string) (Result, error)
}

// Variable is a namespace entry as seen from Go.
type Variable struct {
	Present bool           `json:"present"`
	Value   typeexpr.Value `json:"value"`
	Truthy  bool           `json:"truthy"`
	// Text is str(value) for present variables.
	Text string `json:"text"`
}

// IsNone reports whether the variable is absent or holds None.
func (v Variable) IsNone() bool {
	return !v.Present || v.Value.Kind == typeexpr.KindNone
}

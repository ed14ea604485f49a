package plan

import (
	"github.com/codefionn/planrunner/internal/logger"
)

// Check validates p and logs any warnings. The warnings are also returned.
func Check(p Plan, log *logger.Logger) []string {
	warnings := append(Validate(p), Lint(p)...)
	report(warnings, log)
	return warnings
}

// CheckContinuation is Check for a replanned tail.
func CheckContinuation(completed []CompletedStep, next []Step, log *logger.Logger) []string {
	warnings := append(ValidateContinuation(completed, next), lintFrom(next, len(completed)+1)...)
	report(warnings, log)
	return warnings
}

func report(warnings []string, log *logger.Logger) {
	if len(warnings) == 0 {
		return
	}
	if log == nil {
		log = logger.Global()
	}
	log.Warn("=== Plan validation warnings ===")
	for _, w := range warnings {
		log.Warn("%s", w)
	}
}

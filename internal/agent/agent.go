// Package agent drives one task end to end: it asks the planning model for
// a plan, runs the steps in order, asks for a decision after each step and
// replaces the remaining steps when the decision calls for a replan.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/codefionn/planrunner/internal/consts"
	"github.com/codefionn/planrunner/internal/llm"
	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/plan"
	"github.com/codefionn/planrunner/internal/prompts"
	"github.com/codefionn/planrunner/internal/runlog"
	"github.com/codefionn/planrunner/internal/sandbox"
)

// Fixed results returned instead of a model answer.
const (
	StoppedResult = "Stopped: exceeded max total steps."
	AbortedResult = "Aborted by decision"
)

// resetCompletion runs before every step; final_answer is step-scoped.
const resetCompletion = "final_answer = ''"

// StepRunner executes one plan step. *step.Runner implements it.
type StepRunner interface {
	Run(ctx context.Context, goal string, current plan.Step, completed []plan.CompletedStep, stepIndex int) (string, error)
}

// Namespace runs code in the worker's execution state.
type Namespace interface {
	Run(ctx context.Context, lang, code string) (sandbox.Result, error)
}

// Config holds the task-level budgets.
type Config struct {
	MaxTotalSteps       int
	StructuredMaxTokens int
}

// Agent is the plan/execute/decide loop of one task.
type Agent struct {
	planner  llm.Client
	decider  llm.Client
	replaner llm.Client
	steps    StepRunner
	ns       Namespace
	cfg      Config
	runlog   *runlog.Log
	log      *logger.Logger

	// Now is the clock used for prompt dates.
	Now func() time.Time
}

// New creates an Agent from the plan, decision and replan models.
func New(models *llm.Models, steps StepRunner, ns Namespace, cfg Config, rl *runlog.Log, log *logger.Logger) *Agent {
	if cfg.MaxTotalSteps <= 0 {
		cfg.MaxTotalSteps = consts.DefaultMaxTotalSteps
	}
	if cfg.StructuredMaxTokens <= 0 {
		cfg.StructuredMaxTokens = consts.StructuredMaxTokens
	}
	if log == nil {
		log = logger.Global()
	}
	return &Agent{
		planner:  models.Plan,
		decider:  models.Decision,
		replaner: models.Replan,
		steps:    steps,
		ns:       ns,
		cfg:      cfg,
		runlog:   rl,
		log:      log.WithPrefix("agent"),
		Now:      time.Now,
	}
}

// Run executes goal and returns the task's final result text. Budget
// exhaustion and model-decided aborts are results; errors mean the task
// could not be driven at all.
func (a *Agent) Run(ctx context.Context, goal string) (result string, err error) {
	ctx, span := startRunSpan(ctx, goal)
	defer func() { endSpan(span, result, err) }()

	p, err := a.createPlan(ctx, goal)
	if err != nil {
		return "", err
	}
	a.runlog.Plan("Initial plan:", plan.FormatForLog(p.Steps, 1))
	a.log.Info("Plan has %d steps", len(p.Steps))

	remaining := append([]plan.Step(nil), p.Steps...)
	var completed []plan.CompletedStep

	for i := 0; i < a.cfg.MaxTotalSteps && len(remaining) > 0; i++ {
		current := remaining[0]
		remaining = remaining[1:]
		n := len(completed) + 1

		stepResult, err := a.runStep(ctx, goal, current, completed, n)
		if err != nil {
			return "", err
		}
		completed = append(completed, plan.CompletedStep{Step: current, Result: stepResult})

		decision, err := a.decide(ctx, goal, completed, remaining, n)
		if err != nil {
			return "", err
		}
		a.runlog.Decision(n, decision)
		a.log.Info("Decision after step %d: %s", n, decision.NextAction)

		switch decision.NextAction {
		case plan.ActionAbort:
			if decision.AbortReason == "" {
				return AbortedResult, nil
			}
			return decision.AbortReason, nil
		case plan.ActionTaskCompleted:
			return decision.TaskCompletedReason, nil
		case plan.ActionReplan:
			next, err := a.replan(ctx, goal, completed, remaining, decision.ReplanReason, n)
			if err != nil {
				return "", err
			}
			remaining = append([]plan.Step(nil), next.Steps...)
			a.runlog.Plan(fmt.Sprintf("Replan after step %d:", n), plan.FormatForLog(remaining, n+1))
		case plan.ActionContinue:
		default:
			a.log.Warn("Unknown next_action %q after step %d, continuing", decision.NextAction, n)
		}
	}

	if len(remaining) > 0 {
		a.log.Warn("Step budget of %d exhausted with %d steps left", a.cfg.MaxTotalSteps, len(remaining))
		return StoppedResult, nil
	}
	if len(completed) == 0 {
		return "", nil
	}
	return completed[len(completed)-1].Result, nil
}

func (a *Agent) createPlan(ctx context.Context, goal string) (p plan.Plan, err error) {
	ctx, span := startSpan(ctx, "agent.plan")
	defer func() { endSpan(span, "", err) }()

	if err := a.structured(ctx, a.planner, prompts.Plan(a.Now(), goal), "plan", plan.PlanSchema(), &p); err != nil {
		return plan.Plan{}, fmt.Errorf("failed to create plan: %w", err)
	}
	plan.Check(p, a.log)
	return p, nil
}

func (a *Agent) runStep(ctx context.Context, goal string, current plan.Step, completed []plan.CompletedStep, n int) (result string, err error) {
	ctx, span := startStepSpan(ctx, n, current)
	defer func() { endSpan(span, result, err) }()

	res, err := a.ns.Run(ctx, sandbox.LangPython, resetCompletion)
	if err != nil {
		return "", fmt.Errorf("failed to reset step state: %w", err)
	}
	if res.Stderr != "" {
		a.log.Warn("Resetting step state before step %d: %s", n, res.Stderr)
	}

	return a.steps.Run(ctx, goal, current, completed, n)
}

func (a *Agent) decide(ctx context.Context, goal string, completed []plan.CompletedStep, remaining []plan.Step, n int) (d plan.Decision, err error) {
	ctx, span := startSpan(ctx, "agent.decision")
	defer func() { endSpan(span, string(d.NextAction), err) }()

	prompt := prompts.Decision(a.Now(), goal, plan.FormatCompleted(completed), plan.FormatRemaining(remaining))
	if err := a.structured(ctx, a.decider, prompt, "after_step_decision", plan.DecisionSchema(), &d); err != nil {
		return plan.Decision{}, fmt.Errorf("failed to decide after step %d: %w", n, err)
	}
	return d, nil
}

// replan asks for new remaining steps. Whether the new steps only consume
// variables the completed steps produced is requested in the prompt and
// checked afterwards; violations are logged, never enforced.
func (a *Agent) replan(ctx context.Context, goal string, completed []plan.CompletedStep, remaining []plan.Step, reasons string, n int) (p plan.Plan, err error) {
	ctx, span := startSpan(ctx, "agent.replan")
	defer func() { endSpan(span, "", err) }()

	prompt := prompts.Replan(a.Now(), goal, plan.FormatCompleted(completed), plan.FormatRemaining(remaining), reasons)
	if err := a.structured(ctx, a.replaner, prompt, "plan", plan.PlanSchema(), &p); err != nil {
		return plan.Plan{}, fmt.Errorf("failed to replan after step %d: %w", n, err)
	}
	plan.CheckContinuation(completed, p.Steps, a.log)
	return p, nil
}

func (a *Agent) structured(ctx context.Context, c llm.Client, prompt, name string, schema map[string]any, out any) error {
	return llm.Structured(ctx, c, llm.StructuredRequest{
		Prompt:    prompt,
		Schema:    &llm.ResponseSchema{Name: name, Schema: schema},
		MaxTokens: a.cfg.StructuredMaxTokens,
	}, out)
}

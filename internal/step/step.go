// Package step runs a single plan step: it converses with the agent model,
// executes the python and bash blocks it proposes against the worker's
// sandbox and accepts completion only once the model signals it in the
// strict two-assignment form and every declared output validates.
package step

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

// Names the model assigns to signal that a step is finished.
const (
	StatusVar = "step_status"
	AnswerVar = "final_answer"
)

// StatusFailed is the step_status value that ends a step without checking
// its outputs.
const StatusFailed = "failed"

// Sandbox runs code blocks and reads the resulting namespace.
// *sandbox.Session implements it.
type Sandbox interface {
	Run(ctx context.Context, lang, code string) (sandbox.Result, error)
	Lookup(ctx context.Context, names ...string) (map[string]sandbox.Variable, error)
}

// Config holds the per-step budgets and request settings.
type Config struct {
	MaxIterations   int
	MaxTokens       int
	ReasoningEffort string
}

// Runner executes plan steps one at a time. It is not safe for concurrent
// use; a worker runs its steps sequentially.
type Runner struct {
	client llm.Client
	box    Sandbox
	cfg    Config
	runlog *runlog.Log
	log    *logger.Logger

	// Now is the clock used for prompt dates.
	Now func() time.Time
}

// NewRunner creates a Runner. rl may be nil to skip transcripts.
func NewRunner(client llm.Client, box Sandbox, cfg Config, rl *runlog.Log, log *logger.Logger) *Runner {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = consts.DefaultMaxIterationsPerStep
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = consts.AgentMaxTokens
	}
	if log == nil {
		log = logger.Global()
	}
	return &Runner{
		client: client,
		box:    box,
		cfg:    cfg,
		runlog: rl,
		log:    log,
		Now:    time.Now,
	}
}

// conversation is the state of one step run.
type conversation struct {
	messages   []*llm.Message
	transcript *runlog.StepLog
}

func (c *conversation) add(role, label, content string) {
	c.messages = append(c.messages, &llm.Message{Role: role, Content: content})
	c.transcript.Message(label, content)
}

// Run drives current to completion and returns its result text. Budget
// exhaustion is a result, not an error; errors are reserved for model
// transport failures, cancellation and an unusable sandbox.
func (r *Runner) Run(ctx context.Context, goal string, current plan.Step, completed []plan.CompletedStep, stepIndex int) (string, error) {
	log := r.log.WithPrefix(fmt.Sprintf("step:%d", stepIndex))
	conv := &conversation{transcript: r.runlog.Step(stepIndex)}
	conv.add(llm.RoleSystem, llm.RoleSystem, prompts.StepSystem(r.Now()))
	conv.add(llm.RoleUser, llm.RoleUser, prompts.StepUser(goal, current, completed))

	log.Info("Starting: %s", current.Description)

	for iteration := 1; iteration <= r.cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if log.Enabled(logger.LevelDebug) {
			tokens, approx := llm.EstimateTokens(r.client.GetModelName(), conv.messages)
			log.Debug("Iteration %d/%d, context ~%d tokens (approximate encoding: %t)", iteration, r.cfg.MaxIterations, tokens, approx)
		}

		resp, err := r.client.CompleteWithRequest(ctx, &llm.CompletionRequest{
			Messages:        conv.messages,
			Temperature:     0,
			MaxTokens:       r.cfg.MaxTokens,
			ReasoningEffort: r.cfg.ReasoningEffort,
		})
		if err != nil {
			return "", fmt.Errorf("step %d: agent completion failed: %w", stepIndex, err)
		}

		blocks := llm.ParseBlocks(resp.Content)
		if len(blocks) == 0 {
			log.Warn("Empty reply in iteration %d", iteration)
			continue
		}
		conv.transcript.Reasoning(resp.Reasoning)

		if len(llm.CodeBlocks(blocks)) == 0 {
			conv.add(llm.RoleAssistant, llm.RoleAssistant, resp.Content)
			conv.add(llm.RoleUser, llm.RoleUser, noCodeMessage)
			continue
		}

		rd, err := r.execute(ctx, conv, blocks)
		if err != nil {
			return "", fmt.Errorf("step %d: %w", stepIndex, err)
		}

		verdict, err := r.judge(ctx, current, blocks, rd)
		if err != nil {
			return "", fmt.Errorf("step %d: %w", stepIndex, err)
		}

		switch verdict.kind {
		case verdictAccept:
			log.Info("Completed after %d iterations (status %q)", iteration, verdict.status)
			return verdict.answer, nil
		case verdictChallenge:
			log.Debug("Completion signalled outside the strict form, challenging")
			conv.add(llm.RoleUser, llm.RoleUser, challengeMessage(current))
		case verdictReject:
			log.Debug("Completion rejected: %s", verdict.feedback)
			conv.add(llm.RoleUser, llm.RoleUser, verdict.feedback)
		}
	}

	log.Warn("Iteration budget of %d exhausted", r.cfg.MaxIterations)
	return MaxIterationsResult, nil
}

// round collects what the blocks of one reply did.
type round struct {
	pythonBlocks []string
}

// execute runs the code blocks of one reply in order. Text before a code
// block is folded into that block's assistant turn; trailing text is
// dropped.
func (r *Runner) execute(ctx context.Context, conv *conversation, blocks []llm.Block) (*round, error) {
	rd := &round{}
	var pending []string
	pair := 0

	for _, b := range blocks {
		if !b.IsCode() {
			pending = append(pending, b.Text)
			continue
		}

		conv.add(llm.RoleAssistant, fmt.Sprintf("assistant %d", pair), assistantTurn(pending, b))
		pending = nil

		lang := sandbox.LangBash
		if b.Type == llm.BlockPython {
			lang = sandbox.LangPython
			rd.pythonBlocks = append(rd.pythonBlocks, b.Text)
		}

		res, err := r.box.Run(ctx, lang, b.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to execute %s block: %w", lang, err)
		}
		if len(res.Changed) > 0 {
			r.log.Debug("Block %d changed: %v", b.ID, res.Changed)
		}

		conv.add(llm.RoleUser, fmt.Sprintf("user %d", pair), executionMessage(res))
		pair++
	}
	return rd, nil
}

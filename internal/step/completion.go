package step

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codefionn/planrunner/internal/llm"
	"github.com/codefionn/planrunner/internal/plan"
	"github.com/codefionn/planrunner/internal/syntax"
	"github.com/codefionn/planrunner/internal/typeexpr"
)

type verdictKind int

const (
	// verdictPending means no completion was signalled; keep iterating.
	verdictPending verdictKind = iota
	// verdictChallenge asks the model to confirm in the strict form.
	verdictChallenge
	// verdictReject feeds output validation errors back to the model.
	verdictReject
	// verdictAccept ends the step with the model's answer.
	verdictAccept
)

type verdict struct {
	kind     verdictKind
	status   string
	answer   string
	feedback string
}

// judge decides what the reply that produced blocks means for the step.
func (r *Runner) judge(ctx context.Context, current plan.Step, blocks []llm.Block, rd *round) (verdict, error) {
	if !r.assigned(rd.pythonBlocks) {
		return verdict{kind: verdictPending}, nil
	}

	signal, err := r.box.Lookup(ctx, StatusVar, AnswerVar)
	if err != nil {
		return verdict{}, fmt.Errorf("failed to read completion variables: %w", err)
	}
	status, answer := signal[StatusVar], signal[AnswerVar]
	if !status.Truthy || !answer.Truthy {
		return verdict{kind: verdictPending}, nil
	}

	if !strictForm(blocks) {
		return verdict{kind: verdictChallenge}, nil
	}

	v := verdict{status: status.Text, answer: answer.Text}
	if status.Text == StatusFailed {
		v.kind = verdictAccept
		return v, nil
	}

	feedback, err := r.validateOutputs(ctx, current.OutputVariables)
	if err != nil {
		return verdict{}, err
	}
	if feedback != "" {
		v.kind = verdictReject
		v.feedback = feedback
		return v, nil
	}
	v.kind = verdictAccept
	return v, nil
}

// assigned reports whether any python block binds a completion name,
// wherever the assignment sits.
func (r *Runner) assigned(pythonBlocks []string) bool {
	for _, code := range pythonBlocks {
		analysis, err := syntax.AnalyzePython(code)
		if err != nil {
			r.log.Warn("Failed to analyze python block: %v", err)
			continue
		}
		if analysis.AssignsAny(StatusVar, AnswerVar) {
			return true
		}
	}
	return false
}

// strictForm reports whether the reply is a single python block of
// exactly two top-level statements that together bind both completion
// names.
func strictForm(blocks []llm.Block) bool {
	if len(blocks) != 1 || blocks[0].Type != llm.BlockPython {
		return false
	}
	analysis, err := syntax.AnalyzePython(blocks[0].Text)
	if err != nil || !analysis.Valid {
		return false
	}
	return analysis.Statements == 2 && analysis.TopLevelAssignsAll(StatusVar, AnswerVar)
}

// validateOutputs checks every declared output against the namespace and
// returns the corrective message, or "" when all outputs conform.
func (r *Runner) validateOutputs(ctx context.Context, outputs []plan.Variable) (string, error) {
	if len(outputs) == 0 {
		return "", nil
	}

	names := make([]string, len(outputs))
	for i, out := range outputs {
		names[i] = out.Name
	}
	vars, err := r.box.Lookup(ctx, names...)
	if err != nil {
		return "", fmt.Errorf("failed to read output variables: %w", err)
	}

	var sb strings.Builder
	for _, out := range outputs {
		v := vars[out.Name]
		if v.IsNone() {
			sb.WriteString(missingVariable(out.Name))
			continue
		}
		if strings.TrimSpace(out.DataType) == "object" {
			continue
		}

		err := typeexpr.Check(out.DataType, v.Value)
		if err == nil {
			continue
		}
		var mismatch *typeexpr.Mismatch
		if !errors.As(err, &mismatch) {
			r.log.Warn("Declared type of %s is not checkable: %v", out.Name, err)
			sb.WriteString(unrecognizedType(out.Name, out.DataType, v.Value, err))
			continue
		}
		sb.WriteString(typeMismatch(out.Name, out.DataType, v.Value, mismatch))
	}
	return sb.String(), nil
}

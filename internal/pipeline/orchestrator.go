package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rahul/decisioncalm/internal/agent"
	"github.com/rahul/decisioncalm/internal/decision"
	"github.com/rahul/decisioncalm/internal/observability"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SafetyGate is the safety step plus its model-free keyword screen.
type SafetyGate interface {
	agent.Step
	Screen(ctx context.Context, content string) (agent.SafetyResult, error)
}

// Stages are the five steps in the order they run.
type Stages struct {
	Intake        agent.Step
	Clarification agent.Step
	Calming       agent.Step
	Options       agent.Step
	Safety        SafetyGate
}

// StagesFrom adapts the concrete steps.
func StagesFrom(s *agent.Steps) Stages {
	return Stages{
		Intake:        s.Intake,
		Clarification: s.Clarification,
		Calming:       s.Calming,
		Options:       s.Options,
		Safety:        s.Safety,
	}
}

// Orchestrator runs the decision pipeline. It holds no per-run state and is
// safe for concurrent use.
type Orchestrator struct {
	stages   Stages
	language string
	logger   *observability.Logger
}

// NewOrchestrator builds an orchestrator whose fixed brief texts use
// language. Unknown languages get English.
func NewOrchestrator(stages Stages, language string, logger *observability.Logger) *Orchestrator {
	if logger == nil {
		logger = observability.NewNop()
	}
	return &Orchestrator{stages: stages, language: language, logger: logger}
}

// RunDecisionPipeline turns a decision into a validated brief. It fails with
// ErrInvalidRequest, a *BlockedError, inference.ErrInferenceUnavailable or the
// context's error; any other step problem degrades to a fallback instead.
func (o *Orchestrator) RunDecisionPipeline(ctx context.Context, req Request) (*decision.DecisionBrief, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	state := newState(req)
	o.logger.LogPipeline(state.RunID, "pipeline started",
		zap.Int("stress_level", req.StressLevel),
		zap.Bool("has_user", req.UserID != nil),
	)

	if err := o.screen(ctx, state); err != nil {
		return nil, err
	}

	stress := strconv.Itoa(req.StressLevel)
	plan := []struct {
		step  agent.Step
		input func() agent.StepInput
	}{
		{o.stages.Intake, func() agent.StepInput {
			return agent.NewStepInput(agent.StepIntake, req.Context, map[string]string{
				agent.KeyOptions:     req.Options,
				agent.KeyStressLevel: stress,
			})
		}},
		{o.stages.Clarification, func() agent.StepInput {
			return agent.NewStepInput(agent.StepClarification, req.Context, map[string]string{
				agent.KeyIntakeOutput: agent.Render(*state.Intake),
				agent.KeyStressLevel:  stress,
			})
		}},
		{o.stages.Calming, func() agent.StepInput {
			return agent.NewStepInput(agent.StepCalming, req.Context, map[string]string{
				agent.KeyIntakeOutput: agent.Render(*state.Intake),
				agent.KeyStressLevel:  stress,
			})
		}},
		{o.stages.Options, func() agent.StepInput {
			return agent.NewStepInput(agent.StepOptions, req.Context, map[string]string{
				agent.KeyOptions:      req.Options,
				agent.KeyIntakeOutput: agent.Render(*state.Intake),
				agent.KeyStressLevel:  stress,
			})
		}},
		{o.stages.Safety, func() agent.StepInput {
			return agent.NewStepInput(agent.StepSafety, req.Context+"\n"+req.Options, map[string]string{
				agent.KeyOutput:         state.Generated.Text(),
				agent.KeyCalmnessOutput: state.Calm.Text(),
			})
		}},
	}

	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			o.logger.LogPipeline(state.RunID, "pipeline canceled", zap.String("step", string(p.step.Name())))
			return nil, err
		}
		if err := o.runStep(ctx, state, p.step, p.input()); err != nil {
			return nil, err
		}
	}

	if v := state.Safety.Verdict; !v.Safe() {
		return nil, o.blocked(state, *state.Safety)
	}

	brief := assemble(state, o.language)
	if err := brief.Validate(); err != nil {
		return nil, fmt.Errorf("assembled brief is invalid: %w", err)
	}

	o.logger.LogPipeline(state.RunID, "pipeline completed",
		zap.Duration("processing_time", time.Since(state.StartedAt)),
		zap.Int("options", len(brief.Options)),
		zap.Strings("errors", state.Errors),
	)
	return brief, nil
}

// screen rejects crisis input before any inference call is made.
func (o *Orchestrator) screen(ctx context.Context, state *PipelineState) error {
	state.CurrentStep = agent.StepSafety
	res, err := o.stages.Safety.Screen(ctx, state.Context+"\n"+state.Options)
	if err != nil {
		return err
	}
	if !res.Verdict.Safe() {
		return o.blocked(state, res)
	}
	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, state *PipelineState, step agent.Step, in agent.StepInput) error {
	state.CurrentStep = step.Name()
	start := time.Now()

	out, err := step.Process(ctx, in)
	if err != nil {
		o.logger.LogPipeline(state.RunID, "pipeline failed",
			zap.String("step", string(step.Name())),
			zap.Error(err),
		)
		return fmt.Errorf("%s step: %w", step.Name(), err)
	}
	if err := state.apply(out); err != nil {
		return err
	}

	o.logger.LogStep(state.RunID, string(out.Step), time.Since(start), out.Confidence)
	if out.FallbackReason != "" {
		o.logger.LogFallback(state.RunID, string(out.Step), out.FallbackReason)
	}
	for _, w := range out.Warnings {
		o.logger.Zap().Warn(w, zap.String("run_id", state.RunID), zap.String("step", string(out.Step)))
	}
	if r, ok := out.Result.(agent.SafetyResult); ok && r.Verdict.Safe() {
		o.logger.LogSafety(state.RunID, string(r.Stage()), false, "", r.Verdict.ToneViolations)
	}
	return nil
}

func (o *Orchestrator) blocked(state *PipelineState, res agent.SafetyResult) error {
	o.logger.LogSafety(state.RunID, string(res.BlockedAt), true, res.Verdict.BlockedReason, res.Verdict.ToneViolations)
	return &BlockedError{
		UserMessage:    res.Verdict.UserMessage,
		InternalReason: res.Verdict.BlockedReason,
		Stage:          string(res.BlockedAt),
	}
}

func assemble(state *PipelineState, lang string) *decision.DecisionBrief {
	texts := decision.TextsFor(lang)
	control := state.Generated.ControlQuestion
	if control == "" {
		control = texts.DefaultControlQuestion
	}
	options := make([]decision.DecisionOption, len(state.Generated.Options))
	copy(options, state.Generated.Options)

	return &decision.DecisionBrief{
		Options:         options,
		CalmStep:        state.Calm.CalmStep,
		ControlQuestion: control,
		NextCheckIn:     decision.NextCheckInFor(state.StressLevel, lang),
		Disclaimer:      texts.Disclaimer,
	}
}

// IsBlocked unwraps a *BlockedError from err.
func IsBlocked(err error) (*BlockedError, bool) {
	var b *BlockedError
	if errors.As(err, &b) {
		return b, true
	}
	return nil, false
}

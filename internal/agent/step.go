package agent

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rahul/decisioncalm/internal/decision"
	"github.com/rahul/decisioncalm/internal/inference"
	"github.com/rahul/decisioncalm/internal/observability"
	"go.uber.org/zap"
)

// StepName identifies a pipeline step.
type StepName string

const (
	StepIntake        StepName = "intake"
	StepClarification StepName = "clarification"
	StepCalming       StepName = "calming"
	StepOptions       StepName = "options"
	StepSafety        StepName = "safety"
)

// Completer is the inference capability every step depends on.
type Completer interface {
	Complete(ctx context.Context, req inference.Request) (string, error)
}

// Step is one stage of the decision pipeline.
type Step interface {
	Name() StepName
	SystemPrompt() string
	Process(ctx context.Context, in StepInput) (StepOutput, error)
}

// StepInput is built by the orchestrator before each step and never mutated.
type StepInput struct {
	Step    StepName
	Content string
	Context map[string]string
}

// NewStepInput copies ctx so later changes by the caller are not observed.
func NewStepInput(step StepName, content string, ctx map[string]string) StepInput {
	cp := make(map[string]string, len(ctx))
	for k, v := range ctx {
		cp[k] = v
	}
	return StepInput{Step: step, Content: content, Context: cp}
}

// StepOutput is what a step hands back to the orchestrator.
type StepOutput struct {
	Step       StepName
	Content    string // raw model response
	Result     Result
	Confidence float64
	// FallbackReason is set when Result came from the deterministic default.
	FallbackReason string
	// Warnings are non-fatal observations, e.g. truncated collections.
	Warnings []string
}

// Result is the typed payload of a step. The set of implementations is closed.
type Result interface {
	step() StepName
}

type IntakeResult struct {
	DecisionQuestion    string   `json:"decision_question"`
	Options             []string `json:"options"`
	Constraints         []string `json:"constraints"`
	EmotionalIndicators []string `json:"emotional_indicators"`
	TimeSensitive       bool     `json:"time_sensitive"`
	ContextSummary      string   `json:"context_summary"`
}

type ClarifyingQuestion struct {
	Question  string `json:"question"`
	Reasoning string `json:"reasoning"`
}

type ClarificationResult struct {
	NeedsClarification bool                 `json:"needs_clarification"`
	Questions          []ClarifyingQuestion `json:"questions"`
	MissingInfo        []string             `json:"missing_info"`
}

type CalmResult struct {
	CalmStep         decision.CalmStep `json:"calm_step"`
	StressAssessment string            `json:"stress_assessment"`
	Reasoning        string            `json:"reasoning"`
}

type OptionsResult struct {
	Options         []decision.DecisionOption `json:"options"`
	Considerations  string                    `json:"considerations"`
	ControlQuestion string                    `json:"control_question"`
}

// SafetyStage is a state of the safety gate.
type SafetyStage string

const (
	StagePending     SafetyStage = "pending"
	StageKeywordScan SafetyStage = "keyword_scan"
	StageModelScan   SafetyStage = "model_scan"
	StageApproved    SafetyStage = "approved"
	StageBlocked     SafetyStage = "blocked"
)

type SafetyResult struct {
	Verdict decision.SafetyVerdict `json:"verdict"`
	// BlockedAt is the stage that produced a blocked verdict.
	BlockedAt SafetyStage `json:"blocked_at,omitempty"`
	// Trace lists the stages visited, starting at pending.
	Trace []SafetyStage `json:"trace"`
}

// Stage is the last stage the gate reached.
func (r SafetyResult) Stage() SafetyStage {
	if len(r.Trace) == 0 {
		return StagePending
	}
	return r.Trace[len(r.Trace)-1]
}

func (IntakeResult) step() StepName        { return StepIntake }
func (ClarificationResult) step() StepName { return StepClarification }
func (CalmResult) step() StepName          { return StepCalming }
func (OptionsResult) step() StepName       { return StepOptions }
func (SafetyResult) step() StepName        { return StepSafety }

// Text flattens the user-facing option text for tone scanning.
func (r OptionsResult) Text() string {
	var sb strings.Builder
	for _, o := range r.Options {
		sb.WriteString(o.Title)
		sb.WriteString("\n")
		sb.WriteString(o.Description)
		sb.WriteString("\n")
		for _, c := range o.Consequences {
			sb.WriteString(c)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(r.Considerations)
	sb.WriteString("\n")
	sb.WriteString(r.ControlQuestion)
	return sb.String()
}

// Text flattens the calm step for tone scanning.
func (r CalmResult) Text() string {
	return r.CalmStep.Title + "\n" + r.CalmStep.Description
}

// Render encodes a result for use as a context value in later prompts.
func Render(r Result) string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}

// FormatPrompt concatenates the content with a "key: value" dump of the
// context map. Keys are sorted so identical inputs give identical prompts.
func FormatPrompt(in StepInput) string {
	keys := make([]string, 0, len(in.Context))
	for k := range in.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(in.Content)
	sb.WriteString("\n\nContext:\n")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(in.Context[k])
	}
	return sb.String()
}

// baseStep carries what every step shares.
type baseStep struct {
	name        StepName
	system      string
	client      Completer
	logger      *observability.Logger
	temperature float64
	maxTokens   int
	language    string
}

func (b *baseStep) Name() StepName       { return b.name }
func (b *baseStep) SystemPrompt() string { return b.system }

func (b *baseStep) complete(ctx context.Context, in StepInput) (string, error) {
	if b.logger != nil {
		b.logger.Zap().Debug("calling model",
			zap.String("step", string(b.name)),
			zap.Float64("temperature", b.temperature),
			zap.Int("context_keys", len(in.Context)),
		)
	}
	return b.client.Complete(ctx, inference.Request{
		System:      b.system,
		Prompt:      FormatPrompt(in),
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
		JSON:        true,
	})
}

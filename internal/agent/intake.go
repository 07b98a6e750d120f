package agent

import (
	"context"
	"strings"

	"github.com/rahul/decisioncalm/internal/observability"
)

// Context keys shared between the orchestrator and the steps.
const (
	KeyOptions        = "options"
	KeyStressLevel    = "stress_level"
	KeyIntakeOutput   = "intake_output"
	KeyOutput         = "output"
	KeyCalmnessOutput = "calmness_output"
)

const intakeQuestionLimit = 200

// IntakeStep normalizes the raw decision into an IntakeResult.
type IntakeStep struct {
	baseStep
}

func NewIntakeStep(client Completer, system string, logger *observability.Logger) *IntakeStep {
	return &IntakeStep{baseStep{
		name:        StepIntake,
		system:      system,
		client:      client,
		logger:      logger,
		temperature: 0.3,
	}}
}

func (s *IntakeStep) Process(ctx context.Context, in StepInput) (StepOutput, error) {
	resp, err := s.complete(ctx, in)
	if err != nil {
		return StepOutput{}, err
	}

	out := StepOutput{Step: StepIntake, Content: resp, Confidence: 0.9}

	var res IntakeResult
	if err := decodeJSON(resp, &res); err != nil {
		out.Result = intakeFallback(in, resp)
		out.FallbackReason = err.Error()
		return out, nil
	}
	res.DecisionQuestion = sanitize(res.DecisionQuestion)
	if res.DecisionQuestion == "" {
		out.Result = intakeFallback(in, resp)
		out.FallbackReason = "response has no decision_question"
		return out, nil
	}
	res.ContextSummary = sanitize(res.ContextSummary)
	res.Options = cleanList(res.Options)
	res.Constraints = cleanList(res.Constraints)
	res.EmotionalIndicators = cleanList(res.EmotionalIndicators)

	out.Result = res
	return out, nil
}

// intakeFallback builds an intake from the raw request when the model's
// answer is unusable.
func intakeFallback(in StepInput, raw string) IntakeResult {
	return IntakeResult{
		DecisionQuestion: truncateRunes(strings.TrimSpace(in.Content), intakeQuestionLimit),
		Options:          splitOptions(in.Context[KeyOptions]),
		ContextSummary:   raw,
	}
}

func splitOptions(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = sanitize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

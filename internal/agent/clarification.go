package agent

import (
	"context"
	"fmt"

	"github.com/rahul/decisioncalm/internal/observability"
)

const maxClarifyingQuestions = 2

// ClarificationStep decides whether the decision needs follow-up questions.
// Its result is advisory and never stops the pipeline.
type ClarificationStep struct {
	baseStep
}

func NewClarificationStep(client Completer, system string, logger *observability.Logger) *ClarificationStep {
	return &ClarificationStep{baseStep{
		name:        StepClarification,
		system:      system,
		client:      client,
		logger:      logger,
		temperature: 0.3,
	}}
}

func (s *ClarificationStep) Process(ctx context.Context, in StepInput) (StepOutput, error) {
	resp, err := s.complete(ctx, in)
	if err != nil {
		return StepOutput{}, err
	}

	out := StepOutput{Step: StepClarification, Content: resp, Confidence: 0.85}

	var res ClarificationResult
	if err := decodeJSON(resp, &res); err != nil {
		out.Result = ClarificationResult{}
		out.FallbackReason = err.Error()
		return out, nil
	}

	questions := make([]ClarifyingQuestion, 0, len(res.Questions))
	for _, q := range res.Questions {
		q.Question = sanitize(q.Question)
		q.Reasoning = sanitize(q.Reasoning)
		if q.Question != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) > maxClarifyingQuestions {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"model returned %d clarifying questions; kept first %d", len(questions), maxClarifyingQuestions))
		questions = questions[:maxClarifyingQuestions]
	}
	res.Questions = questions
	res.MissingInfo = cleanList(res.MissingInfo)
	if len(questions) == 0 {
		res.NeedsClarification = false
	}

	out.Result = res
	return out, nil
}

package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rahul/decisioncalm/internal/agent"
)

// Request is one decision submitted for a brief.
type Request struct {
	Context     string  `json:"context" validate:"min=10,max=2000"`
	Options     string  `json:"options" validate:"min=5,max=1000"`
	StressLevel int     `json:"stress_level" validate:"min=1,max=10"`
	UserID      *string `json:"user_id,omitempty"`
}

// EmbeddingText is the text whose embedding a caller stores with the brief.
func (r Request) EmbeddingText() string {
	return r.Context + " " + r.Options
}

// PipelineState is owned by a single run and discarded once the brief is
// assembled.
type PipelineState struct {
	RunID       string
	Context     string
	Options     string
	StressLevel int
	UserID      *string
	StartedAt   time.Time

	Intake        *agent.IntakeResult
	Clarification *agent.ClarificationResult
	Calm          *agent.CalmResult
	Generated     *agent.OptionsResult
	Safety        *agent.SafetyResult

	CompletedSteps []agent.StepName
	CurrentStep    agent.StepName
	Errors         []string
}

func newState(req Request) *PipelineState {
	return &PipelineState{
		RunID:       uuid.NewString(),
		Context:     req.Context,
		Options:     req.Options,
		StressLevel: req.StressLevel,
		UserID:      req.UserID,
		StartedAt:   time.Now(),
	}
}

// apply folds a step's output into the state.
func (s *PipelineState) apply(out agent.StepOutput) error {
	switch r := out.Result.(type) {
	case agent.IntakeResult:
		s.Intake = &r
	case agent.ClarificationResult:
		s.Clarification = &r
	case agent.CalmResult:
		s.Calm = &r
	case agent.OptionsResult:
		s.Generated = &r
	case agent.SafetyResult:
		s.Safety = &r
	default:
		return fmt.Errorf("step %s returned unexpected result %T", out.Step, out.Result)
	}
	if out.FallbackReason != "" {
		s.Errors = append(s.Errors, fmt.Sprintf("%s: fallback: %s", out.Step, out.FallbackReason))
	}
	for _, w := range out.Warnings {
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", out.Step, w))
	}
	s.CompletedSteps = append(s.CompletedSteps, out.Step)
	return nil
}

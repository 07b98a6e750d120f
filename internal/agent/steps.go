package agent

import (
	"fmt"

	"github.com/rahul/decisioncalm/internal/governance"
	"github.com/rahul/decisioncalm/internal/observability"
)

// Steps holds one instance of each pipeline step.
type Steps struct {
	Intake        *IntakeStep
	Clarification *ClarificationStep
	Calming       *CalmingStep
	Options       *OptionsStep
	Safety        *SafetyStep
}

// NewSteps loads every system prompt through pm and builds the steps.
func NewSteps(client Completer, pm *PromptManager, policy governance.PolicyEngine, logger *observability.Logger, optionsMaxTokens int) (*Steps, error) {
	prompts := make(map[StepName]string, 5)
	for _, name := range []StepName{StepIntake, StepClarification, StepCalming, StepOptions, StepSafety} {
		p, err := pm.GetStepPrompt(name)
		if err != nil {
			return nil, fmt.Errorf("loading %s prompt: %w", name, err)
		}
		prompts[name] = p
	}
	if logger == nil {
		logger = observability.NewNop()
	}
	return &Steps{
		Intake:        NewIntakeStep(client, prompts[StepIntake], logger),
		Clarification: NewClarificationStep(client, prompts[StepClarification], logger),
		Calming:       NewCalmingStep(client, prompts[StepCalming], pm.Language, logger),
		Options:       NewOptionsStep(client, prompts[StepOptions], pm.Language, logger, optionsMaxTokens),
		Safety:        NewSafetyStep(client, prompts[StepSafety], policy, pm.Language, logger),
	}, nil
}

package agent

import (
	"context"
	"strconv"
	"strings"

	"github.com/rahul/decisioncalm/internal/decision"
	"github.com/rahul/decisioncalm/internal/observability"
)

const defaultStressLevel = 5

// CalmingStep proposes one short calming activity matched to stress level.
type CalmingStep struct {
	baseStep
}

func NewCalmingStep(client Completer, system, language string, logger *observability.Logger) *CalmingStep {
	return &CalmingStep{baseStep{
		name:        StepCalming,
		system:      system,
		client:      client,
		logger:      logger,
		temperature: 0.7,
		language:    language,
	}}
}

func (s *CalmingStep) Process(ctx context.Context, in StepInput) (StepOutput, error) {
	resp, err := s.complete(ctx, in)
	if err != nil {
		return StepOutput{}, err
	}

	out := StepOutput{Step: StepCalming, Content: resp, Confidence: 0.8}
	stress := StressFromContext(in.Context)

	var res CalmResult
	if err := decodeJSON(resp, &res); err != nil {
		out.Result = CalmResult{CalmStep: CalmFallback(stress, s.language), StressAssessment: "unknown"}
		out.FallbackReason = err.Error()
		return out, nil
	}

	res.CalmStep.Title = sanitize(res.CalmStep.Title)
	res.CalmStep.Description = sanitize(res.CalmStep.Description)
	res.CalmStep.Type = decision.CalmStepType(strings.ToLower(strings.TrimSpace(string(res.CalmStep.Type))))
	if err := res.CalmStep.Validate(); err != nil {
		out.Result = CalmResult{CalmStep: CalmFallback(stress, s.language), StressAssessment: sanitize(res.StressAssessment)}
		out.FallbackReason = err.Error()
		return out, nil
	}
	res.StressAssessment = sanitize(res.StressAssessment)
	res.Reasoning = sanitize(res.Reasoning)

	out.Result = res
	return out, nil
}

// StressFromContext reads the stress level the orchestrator put in the step
// context, defaulting to a moderate level when absent or malformed.
func StressFromContext(m map[string]string) int {
	n, err := strconv.Atoi(strings.TrimSpace(m[KeyStressLevel]))
	if err != nil || n < 1 || n > 10 {
		return defaultStressLevel
	}
	return n
}

var calmFallbacks = map[string]map[decision.StressTier]decision.CalmStep{
	decision.LangEnglish: {
		decision.StressHigh: {
			Type:            decision.CalmBreathing,
			Title:           "Box breathing",
			Description:     "Breathe in for 4 counts, hold for 4, breathe out for 4, hold for 4. Repeat 3 times.",
			DurationMinutes: 3,
		},
		decision.StressModerate: {
			Type:            decision.CalmBreak,
			Title:           "Short break",
			Description:     "Step away from the decision for 10 minutes. Take a walk, stretch, or look out of the window.",
			DurationMinutes: 10,
		},
		decision.StressLow: {
			Type:            decision.CalmJournaling,
			Title:           "Quick reflection",
			Description:     "Write down your main concerns about this decision in 2-3 sentences.",
			DurationMinutes: 5,
		},
	},
	decision.LangPolish: {
		decision.StressHigh: {
			Type:            decision.CalmBreathing,
			Title:           "Oddychanie kwadratowe",
			Description:     "Wdech na 4 oddechy, wstrzymaj na 4, wydech na 4, wstrzymaj na 4. Powtórz 3 razy.",
			DurationMinutes: 3,
		},
		decision.StressModerate: {
			Type:            decision.CalmBreak,
			Title:           "Krótka przerwa",
			Description:     "Odejdź od decyzji na 10 minut. Przejdź się, rozciągnij lub popatrz przez okno.",
			DurationMinutes: 10,
		},
		decision.StressLow: {
			Type:            decision.CalmJournaling,
			Title:           "Szybka refleksja",
			Description:     "Zapisz swoje główne obawy dotyczące tej decyzji w 2-3 zdaniach.",
			DurationMinutes: 5,
		},
	},
}

// CalmFallback returns the fixed calm step for the tier of the given level.
// Unknown languages get the English script.
func CalmFallback(stress int, lang string) decision.CalmStep {
	scripts, ok := calmFallbacks[lang]
	if !ok {
		scripts = calmFallbacks[decision.LangEnglish]
	}
	return scripts[decision.TierFor(stress)]
}

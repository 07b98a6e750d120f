package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rahul/decisioncalm/internal/decision"
	"github.com/rahul/decisioncalm/internal/observability"
)

const (
	minOptions        = 2
	maxOptions        = 4
	defaultConfidence = 0.7
)

// riskLabels maps the risk labels models emit, in English and Polish, onto
// RiskLevel.
var riskLabels = map[string]decision.RiskLevel{
	"low":     decision.RiskLow,
	"niskie":  decision.RiskLow,
	"niski":   decision.RiskLow,
	"niska":   decision.RiskLow,
	"medium":  decision.RiskMedium,
	"średnie": decision.RiskMedium,
	"średni":  decision.RiskMedium,
	"średnia": decision.RiskMedium,
	"high":    decision.RiskHigh,
	"wysokie": decision.RiskHigh,
	"wysoki":  decision.RiskHigh,
	"wysoka":  decision.RiskHigh,
}

// rawOption is the lenient shape of an option as models return it.
type rawOption struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Consequences    []string `json:"consequences"`
	EmotionalRisk   string   `json:"emotional_risk"`
	ConfidenceLevel *float64 `json:"confidence_level"`
	Confidence      *float64 `json:"confidence"`
}

type rawOptions struct {
	Options         []rawOption `json:"options"`
	Considerations  string      `json:"considerations"`
	ControlQuestion string      `json:"control_question"`
}

// OptionsStep generates two to four decision options.
type OptionsStep struct {
	baseStep
}

func NewOptionsStep(client Completer, system, language string, logger *observability.Logger, maxTokens int) *OptionsStep {
	return &OptionsStep{baseStep{
		name:        StepOptions,
		system:      system,
		client:      client,
		logger:      logger,
		temperature: 0.7,
		maxTokens:   maxTokens,
		language:    language,
	}}
}

func (s *OptionsStep) Process(ctx context.Context, in StepInput) (StepOutput, error) {
	resp, err := s.complete(ctx, in)
	if err != nil {
		return StepOutput{}, err
	}

	out := StepOutput{Step: StepOptions, Content: resp, Confidence: 0.75}

	var raw rawOptions
	if err := decodeJSON(resp, &raw); err != nil {
		out.Result = OptionsResult{
			Options:         FallbackOptions(s.language),
			ControlQuestion: decision.TextsFor(s.language).DefaultControlQuestion,
		}
		out.FallbackReason = err.Error()
		return out, nil
	}

	res := OptionsResult{
		Considerations:  sanitize(raw.Considerations),
		ControlQuestion: controlQuestion(raw.ControlQuestion, s.language),
	}
	for i, r := range raw.Options {
		opt := normalizeOption(r)
		if err := opt.Validate(); err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("dropped option %d: %v", i+1, err))
			continue
		}
		if len(res.Options) == maxOptions {
			out.Warnings = append(out.Warnings, fmt.Sprintf(
				"model returned more than %d valid options; kept first %d", maxOptions, maxOptions))
			break
		}
		res.Options = append(res.Options, opt)
	}
	if len(res.Options) < minOptions {
		out.FallbackReason = fmt.Sprintf("only %d valid options in response", len(res.Options))
		res.Options = FallbackOptions(s.language)
	}

	out.Result = res
	return out, nil
}

func normalizeOption(r rawOption) decision.DecisionOption {
	conf := defaultConfidence
	switch {
	case r.ConfidenceLevel != nil:
		conf = *r.ConfidenceLevel
	case r.Confidence != nil:
		conf = *r.Confidence
	}
	return decision.DecisionOption{
		Title:         sanitize(r.Title),
		Description:   sanitize(r.Description),
		Consequences:  cleanList(r.Consequences),
		EmotionalRisk: normalizeRisk(r.EmotionalRisk),
		Confidence:    conf,
	}
}

// normalizeRisk maps a label onto RiskLevel. Unknown labels are kept so that
// validation rejects the option; an empty label becomes medium.
func normalizeRisk(label string) decision.RiskLevel {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return decision.RiskMedium
	}
	if r, ok := riskLabels[l]; ok {
		return r
	}
	return decision.RiskLevel(l)
}

func controlQuestion(q, lang string) string {
	q = sanitize(q)
	if n := utf8.RuneCountInString(q); n < 10 || n > 300 {
		return decision.TextsFor(lang).DefaultControlQuestion
	}
	return q
}

var fallbackOptions = map[string][]decision.DecisionOption{
	decision.LangEnglish: {
		{
			Title:         "Proceed with current plan",
			Description:   "Continue with the decision as you described it",
			Consequences:  []string{"Action will be taken", "The situation will change"},
			EmotionalRisk: decision.RiskMedium,
			Confidence:    0.5,
		},
		{
			Title:         "Wait and gather more information",
			Description:   "Take time to research and reflect before deciding",
			Consequences:  []string{"Delayed decision", "More clarity", "Possible missed opportunity"},
			EmotionalRisk: decision.RiskLow,
			Confidence:    0.6,
		},
	},
	decision.LangPolish: {
		{
			Title:         "Postąp zgodnie z obecnym planem",
			Description:   "Kontynuuj decyzję tak, jak ją opisałeś",
			Consequences:  []string{"Działanie zostanie podjęte", "Sytuacja się zmieni"},
			EmotionalRisk: decision.RiskMedium,
			Confidence:    0.5,
		},
		{
			Title:         "Poczekaj i zbierz więcej informacji",
			Description:   "Poświęć czas na badanie i refleksję przed podjęciem decyzji",
			Consequences:  []string{"Opóźniona decyzja", "Większa jasność", "Możliwa stracona szansa"},
			EmotionalRisk: decision.RiskLow,
			Confidence:    0.6,
		},
	},
}

// FallbackOptions is the fixed pair used when the model yields fewer than two
// usable options. The returned slices are copies.
func FallbackOptions(lang string) []decision.DecisionOption {
	opts, ok := fallbackOptions[lang]
	if !ok {
		opts = fallbackOptions[decision.LangEnglish]
	}
	out := make([]decision.DecisionOption, len(opts))
	for i, o := range opts {
		o.Consequences = append([]string(nil), o.Consequences...)
		out[i] = o
	}
	return out
}

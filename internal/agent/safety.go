package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/decisioncalm/internal/decision"
	"github.com/rahul/decisioncalm/internal/governance"
	"github.com/rahul/decisioncalm/internal/observability"
)

// Crisis messages shown to the user when the keyword scan blocks input.
var crisisMessages = map[string]string{
	"en": "We detected content that may indicate a crisis. " +
		"This platform is not designed to support crisis situations. " +
		"Please contact a crisis line: Poland 116 123 | Children and Youth Helpline 116 111 | US 988",
	"pl": "Wykryliśmy treść, która może wskazywać na kryzys. " +
		"Ta platforma nie jest przystosowana do wsparcia w sytuacjach kryzysowych. " +
		"Skontaktuj się z infolinią kryzysową: Polska 116 123 | Telefon Zaufania dla Dzieci i Młodzieży 116 111",
}

var modelBlockMessages = map[string]string{
	"en": "Content blocked for safety reasons",
	"pl": "Treść zablokowana ze względów bezpieczeństwa",
}

type safetyResponse struct {
	IsSafe            *bool    `json:"is_safe"`
	BlockedReason     string   `json:"blocked_reason"`
	ToneViolations    []string `json:"tone_violations"`
	NeedsDisclaimer   *bool    `json:"needs_disclaimer"`
	RecommendedAction string   `json:"recommended_action"`
}

// SafetyStep is the last gate before a brief reaches the user. It moves
// through pending, keyword_scan and model_scan, ending approved or blocked.
type SafetyStep struct {
	baseStep
	policy   governance.PolicyEngine
	language string
}

func NewSafetyStep(client Completer, system string, policy governance.PolicyEngine, language string, logger *observability.Logger) *SafetyStep {
	if _, ok := crisisMessages[language]; !ok {
		language = "en"
	}
	return &SafetyStep{
		baseStep: baseStep{
			name:        StepSafety,
			system:      system,
			client:      client,
			logger:      logger,
			temperature: 0.2,
		},
		policy:   policy,
		language: language,
	}
}

// CrisisMessage is the user-facing text for a keyword block.
func (s *SafetyStep) CrisisMessage() string {
	return crisisMessages[s.language]
}

// Screen runs only the keyword scan. It never calls the model, so the
// orchestrator can use it to reject crisis input before any inference. A
// passing screen ends its trace at keyword_scan.
func (s *SafetyStep) Screen(ctx context.Context, content string) (SafetyResult, error) {
	trace := []SafetyStage{StagePending, StageKeywordScan}
	res, err := s.policy.Evaluate(ctx, governance.Request{Kind: governance.KindInput, Text: content})
	if err != nil {
		return SafetyResult{}, fmt.Errorf("keyword scan: %w", err)
	}
	if res.Effect == governance.EffectDeny {
		return SafetyResult{
			Verdict: decision.SafetyVerdict{
				Status:          decision.SafetyBlocked,
				BlockedReason:   res.Reason,
				UserMessage:     s.CrisisMessage(),
				ToneViolations:  []string{},
				NeedsDisclaimer: true,
			},
			BlockedAt: StageKeywordScan,
			Trace:     append(trace, StageBlocked),
		}, nil
	}
	return SafetyResult{
		Verdict: decision.SafetyVerdict{
			Status:         decision.SafetyApproved,
			ToneViolations: []string{},
		},
		Trace: trace,
	}, nil
}

func (s *SafetyStep) Process(ctx context.Context, in StepInput) (StepOutput, error) {
	out := StepOutput{Step: StepSafety, Confidence: 0.95}

	screened, err := s.Screen(ctx, in.Content)
	if err != nil {
		return StepOutput{}, err
	}
	if !screened.Verdict.Safe() {
		out.Result = screened
		return out, nil
	}

	violations, err := s.toneViolations(ctx, in.Context[KeyOutput]+"\n"+in.Context[KeyCalmnessOutput])
	if err != nil {
		return StepOutput{}, err
	}

	trace := append(screened.Trace, StageModelScan)
	resp, err := s.complete(ctx, in)
	if err != nil {
		return StepOutput{}, err
	}
	out.Content = resp

	verdict := decision.SafetyVerdict{
		Status:          decision.SafetyApproved,
		ToneViolations:  violations,
		NeedsDisclaimer: true,
	}

	var parsed safetyResponse
	if err := decodeJSON(resp, &parsed); err != nil {
		out.FallbackReason = err.Error()
		out.Result = SafetyResult{Verdict: verdict, Trace: append(trace, StageApproved)}
		return out, nil
	}

	if (parsed.IsSafe != nil && !*parsed.IsSafe) || strings.EqualFold(parsed.RecommendedAction, "block") {
		reason := sanitize(parsed.BlockedReason)
		if reason == "" {
			reason = "model judged content unsafe"
		}
		verdict.Status = decision.SafetyBlocked
		verdict.BlockedReason = reason
		verdict.UserMessage = modelBlockMessages[s.language]
		out.Result = SafetyResult{Verdict: verdict, BlockedAt: StageModelScan, Trace: append(trace, StageBlocked)}
		return out, nil
	}

	if parsed.NeedsDisclaimer != nil {
		verdict.NeedsDisclaimer = *parsed.NeedsDisclaimer
	}
	if len(violations) > 0 {
		verdict.NeedsDisclaimer = true
	}
	out.Result = SafetyResult{Verdict: verdict, Trace: append(trace, StageApproved)}
	return out, nil
}

func (s *SafetyStep) toneViolations(ctx context.Context, text string) ([]string, error) {
	res, err := s.policy.Evaluate(ctx, governance.Request{Kind: governance.KindOutput, Text: text})
	if err != nil {
		return nil, fmt.Errorf("tone scan: %w", err)
	}
	if res.Effect != governance.EffectFlag {
		return []string{}, nil
	}
	return res.Matches, nil
}

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rahul/decisioncalm/internal/agent"
	"github.com/rahul/decisioncalm/internal/decision"
	"github.com/rahul/decisioncalm/internal/governance"
	"github.com/rahul/decisioncalm/internal/inference"
	"github.com/rahul/decisioncalm/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	intakeJSON = `{"decision_question": "Should I change jobs?", "options": ["Stay", "Leave", "Negotiate"],
		"constraints": [], "emotional_indicators": ["comfortable", "uncertain"], "time_sensitive": false,
		"context_summary": "Has an offer"}`
	clarifyJSON = `{"needs_clarification": false, "questions": [], "missing_info": []}`
	calmJSON    = `{"calm_step": {"type": "breathing", "title": "Box breathing",
		"description": "Breathe in for 4 counts, hold for 4, out for 4.", "duration_minutes": 3},
		"stress_assessment": "high", "reasoning": "stress 8"}`
	optionsJSON = `{"options": [
		{"title": "Stay", "description": "Keep your current role", "consequences": ["Stability", "Less growth"], "emotional_risk": "low", "confidence_level": 0.7},
		{"title": "Leave", "description": "Accept the offer", "consequences": ["New challenges"], "emotional_risk": "high", "confidence_level": 0.6},
		{"title": "Negotiate", "description": "Use the offer to negotiate", "consequences": ["Raise", "Tension"], "emotional_risk": "medium", "confidence_level": 0.65}
	], "considerations": "growth vs comfort", "control_question": "Which option would you regret not trying?"}`
	safeJSON = `{"is_safe": true, "blocked_reason": "", "tone_violations": [], "needs_disclaimer": true, "recommended_action": "approve"}`
)

// routedCompleter answers by system prompt so each step gets its own script.
type routedCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	calls     map[string]int
}

func newRouted(overrides map[string]string) *routedCompleter {
	r := &routedCompleter{
		responses: map[string]string{
			"intake":        intakeJSON,
			"clarification": clarifyJSON,
			"calming":       calmJSON,
			"options":       optionsJSON,
			"safety":        safeJSON,
		},
		calls: map[string]int{},
	}
	for k, v := range overrides {
		r.responses[k] = v
	}
	return r
}

func (r *routedCompleter) Complete(ctx context.Context, req inference.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[req.System]++
	return r.responses[req.System], nil
}

func (r *routedCompleter) count(step string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[step]
}

func (r *routedCompleter) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func newTestOrchestrator(c agent.Completer, logger *observability.Logger) *Orchestrator {
	return newLocalizedOrchestrator(c, decision.LangEnglish, logger)
}

func newLocalizedOrchestrator(c agent.Completer, lang string, logger *observability.Logger) *Orchestrator {
	policy := governance.NewCrisisPolicyEngine()
	return NewOrchestrator(Stages{
		Intake:        agent.NewIntakeStep(c, "intake", logger),
		Clarification: agent.NewClarificationStep(c, "clarification", logger),
		Calming:       agent.NewCalmingStep(c, "calming", lang, logger),
		Options:       agent.NewOptionsStep(c, "options", lang, logger, 1500),
		Safety:        agent.NewSafetyStep(c, "safety", policy, lang, logger),
	}, lang, logger)
}

func jobRequest() Request {
	return Request{
		Context:     "Should I change jobs? I have an offer but I'm comfortable here.",
		Options:     "Stay, Leave, Negotiate",
		StressLevel: 8,
	}
}

func TestRunDecisionPipeline_JobChange(t *testing.T) {
	c := newRouted(nil)
	o := newTestOrchestrator(c, nil)

	brief, err := o.RunDecisionPipeline(context.Background(), jobRequest())
	require.NoError(t, err)
	require.NotNil(t, brief)

	assert.Equal(t, decision.CalmBreathing, brief.CalmStep.Type)
	assert.Equal(t, 3, brief.CalmStep.DurationMinutes)
	assert.GreaterOrEqual(t, len(brief.Options), 2)
	assert.LessOrEqual(t, len(brief.Options), 4)
	assert.Equal(t, "30 minutes to 1 hour", brief.NextCheckIn.Suggestion)
	assert.NotEmpty(t, brief.Disclaimer)
	assert.Equal(t, "Which option would you regret not trying?", brief.ControlQuestion)
	assert.NoError(t, brief.Validate())

	for _, step := range []string{"intake", "clarification", "calming", "options", "safety"} {
		assert.Equal(t, 1, c.count(step), step)
	}
}

func TestRunDecisionPipeline_AllFallbacks(t *testing.T) {
	c := newRouted(map[string]string{
		"intake":        "oops",
		"clarification": "oops",
		"calming":       "oops",
		"options":       "oops",
		"safety":        "oops",
	})
	core, logs := observer.New(zap.DebugLevel)
	o := newTestOrchestrator(c, observability.FromZap(zap.New(core)))

	req := jobRequest()
	req.StressLevel = 2
	brief, err := o.RunDecisionPipeline(context.Background(), req)
	require.NoError(t, err)

	want := &decision.DecisionBrief{
		Options:         agent.FallbackOptions(decision.LangEnglish),
		CalmStep:        agent.CalmFallback(2, decision.LangEnglish),
		ControlQuestion: decision.DefaultControlQuestion,
		NextCheckIn:     decision.NextCheckInFor(2, decision.LangEnglish),
		Disclaimer:      decision.Disclaimer,
	}
	if diff := cmp.Diff(want, brief); diff != "" {
		t.Errorf("fallback brief mismatch (-want +got):\n%s", diff)
	}

	fallbacks := logs.FilterField(zap.String("type", string(observability.EventTypeFallback)))
	assert.Equal(t, 5, fallbacks.Len())
}

func TestRunDecisionPipeline_AllFallbacksPolish(t *testing.T) {
	c := newRouted(map[string]string{
		"intake":        "oops",
		"clarification": "oops",
		"calming":       "oops",
		"options":       "oops",
		"safety":        "oops",
	})
	o := newLocalizedOrchestrator(c, decision.LangPolish, nil)

	req := Request{
		Context:     "Czy powinienem zmienić pracę? Mam ofertę, ale tu jest mi wygodnie.",
		Options:     "Zostać, odejść, negocjować",
		StressLevel: 8,
	}
	brief, err := o.RunDecisionPipeline(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, brief.Validate())

	texts := decision.TextsFor(decision.LangPolish)
	assert.Equal(t, texts.Disclaimer, brief.Disclaimer)
	assert.Equal(t, texts.DefaultControlQuestion, brief.ControlQuestion)
	assert.Equal(t, "Za 30 minut do godziny", brief.NextCheckIn.Suggestion)
	assert.Equal(t, "Oddychanie kwadratowe", brief.CalmStep.Title)
	assert.Equal(t, agent.FallbackOptions(decision.LangPolish), brief.Options)

	english := []string{
		decision.Disclaimer,
		decision.DefaultControlQuestion,
		decision.NextCheckInFor(8, decision.LangEnglish).Suggestion,
		agent.CalmFallback(8, decision.LangEnglish).Title,
		agent.FallbackOptions(decision.LangEnglish)[0].Title,
	}
	for _, en := range english {
		assert.NotContains(t, []string{
			brief.Disclaimer,
			brief.ControlQuestion,
			brief.NextCheckIn.Suggestion,
			brief.CalmStep.Title,
			brief.Options[0].Title,
		}, en)
	}
}

func TestRunDecisionPipeline_SelfHarmNeverReachesModel(t *testing.T) {
	for _, text := range []string{
		"I want to kill myself, should I quit my job?",
		"Nie chcę żyć, czy powinienem rzucić pracę?",
	} {
		t.Run(text, func(t *testing.T) {
			c := newRouted(nil)
			o := newTestOrchestrator(c, nil)

			req := jobRequest()
			req.Context = text
			brief, err := o.RunDecisionPipeline(context.Background(), req)
			assert.Nil(t, brief)
			require.ErrorIs(t, err, ErrContentBlocked)

			blocked, ok := IsBlocked(err)
			require.True(t, ok)
			assert.Equal(t, string(agent.StageKeywordScan), blocked.Stage)
			assert.Contains(t, blocked.UserMessage, "988")
			assert.Contains(t, blocked.InternalReason, "self-harm")
			assert.NotContains(t, blocked.UserMessage, blocked.InternalReason)

			assert.Zero(t, c.count("calming"))
			assert.Zero(t, c.count("options"))
			assert.Zero(t, c.total())
		})
	}
}

func TestRunDecisionPipeline_ModelBlocks(t *testing.T) {
	c := newRouted(map[string]string{
		"safety": `{"is_safe": false, "blocked_reason": "asks for a medical diagnosis"}`,
	})
	o := newTestOrchestrator(c, nil)

	brief, err := o.RunDecisionPipeline(context.Background(), jobRequest())
	assert.Nil(t, brief)
	blocked, ok := IsBlocked(err)
	require.True(t, ok)
	assert.Equal(t, string(agent.StageModelScan), blocked.Stage)
	assert.Equal(t, "asks for a medical diagnosis", blocked.InternalReason)
	assert.Equal(t, "Content blocked for safety reasons", blocked.UserMessage)
}

type failingGen struct {
	mu    sync.Mutex
	calls int
}

func (f *failingGen) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, errors.New("503 service unavailable")
}

func TestRunDecisionPipeline_RetryExhaustion(t *testing.T) {
	gen := &failingGen{}
	client := inference.New(gen, nil, inference.Options{
		Model:     "test-model",
		BaseDelay: time.Millisecond,
		MaxDelay:  time.Millisecond,
	}, nil)
	o := newTestOrchestrator(client, nil)

	brief, err := o.RunDecisionPipeline(context.Background(), jobRequest())
	assert.Nil(t, brief)
	require.ErrorIs(t, err, inference.ErrInferenceUnavailable)

	var unavailable *inference.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "test-model", unavailable.Model)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.Equal(t, 3, gen.calls)
}

func TestRunDecisionPipeline_CanceledContext(t *testing.T) {
	c := newRouted(nil)
	o := newTestOrchestrator(c, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.RunDecisionPipeline(ctx, jobRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, c.total())
}

func TestRunDecisionPipeline_InvalidRequest(t *testing.T) {
	o := newTestOrchestrator(newRouted(nil), nil)
	tests := []Request{
		{Context: "short", Options: "Stay, Leave", StressLevel: 5},
		{Context: "Should I change jobs?", Options: "a", StressLevel: 5},
		{Context: "Should I change jobs?", Options: "Stay, Leave", StressLevel: 0},
		{Context: "Should I change jobs?", Options: "Stay, Leave", StressLevel: 11},
	}
	for _, req := range tests {
		_, err := o.RunDecisionPipeline(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestRunDecisionPipeline_Concurrent(t *testing.T) {
	c := newRouted(nil)
	o := newTestOrchestrator(c, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = o.RunDecisionPipeline(context.Background(), jobRequest())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 8, c.count("intake"))
}

func TestRequest_EmbeddingText(t *testing.T) {
	assert.Equal(t, "ctx opts", Request{Context: "ctx", Options: "opts"}.EmbeddingText())
}

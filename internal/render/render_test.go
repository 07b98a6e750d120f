package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/decisioncalm/internal/decision"
)

func sampleBrief() *decision.DecisionBrief {
	return &decision.DecisionBrief{
		Options: []decision.DecisionOption{
			{Title: "Stay", Description: "Keep your role", Consequences: []string{"Stability"}, EmotionalRisk: decision.RiskLow, Confidence: 0.7},
			{Title: "Leave", Description: "Take the offer", Consequences: []string{"Growth", "Uncertainty"}, EmotionalRisk: decision.RiskHigh, Confidence: 0.55},
		},
		CalmStep: decision.CalmStep{
			Type: decision.CalmBreathing, Title: "Box breathing",
			Description: "Breathe in for 4 counts.", DurationMinutes: 3,
		},
		ControlQuestion: "Which option would you regret not trying?",
		NextCheckIn:     decision.NextCheckInFor(8, decision.LangEnglish),
		Disclaimer:      decision.Disclaimer,
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleBrief())

	assert.Contains(t, md, "### 1. Stay")
	assert.Contains(t, md, "### 2. Leave")
	assert.Contains(t, md, "- Uncertainty")
	assert.Contains(t, md, "Emotional risk: **high** · confidence 55%")
	assert.Contains(t, md, "**Box breathing** (breathing, 3 min)")
	assert.Contains(t, md, "> Which option would you regret not trying?")
	assert.Contains(t, md, "30 minutes to 1 hour")
	assert.True(t, strings.HasSuffix(md, "_"+decision.Disclaimer+"_\n"))
	assert.Less(t, strings.Index(md, "moment of calm"), strings.Index(md, "## Options"))
}

func TestTerminal_Render(t *testing.T) {
	r, err := NewTerminal(80)
	require.NoError(t, err)

	out, err := r.Render(Markdown(sampleBrief()))
	require.NoError(t, err)
	assert.Contains(t, out, "Box breathing")
	assert.Contains(t, out, "Leave")
}

func TestClamp(t *testing.T) {
	assert.Equal(t, minWidth, clamp(10, minWidth, maxWidth))
	assert.Equal(t, maxWidth, clamp(500, minWidth, maxWidth))
	assert.Equal(t, 90, clamp(90, minWidth, maxWidth))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "one calm step")
}

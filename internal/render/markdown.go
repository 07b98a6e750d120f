package render

import (
	"fmt"
	"strings"

	"github.com/rahul/decisioncalm/internal/decision"
)

var riskIcons = map[decision.RiskLevel]string{
	decision.RiskLow:    "🟢",
	decision.RiskMedium: "🟡",
	decision.RiskHigh:   "🔴",
}

// Markdown lays the brief out as a markdown document: calm step first, then
// the options, the control question and the check-in.
func Markdown(b *decision.DecisionBrief) string {
	var sb strings.Builder

	sb.WriteString("# Your decision brief\n\n")

	sb.WriteString("## First, a moment of calm\n\n")
	fmt.Fprintf(&sb, "**%s** (%s, %d min)\n\n", b.CalmStep.Title, b.CalmStep.Type, b.CalmStep.DurationMinutes)
	sb.WriteString(b.CalmStep.Description)
	sb.WriteString("\n\n")

	sb.WriteString("## Options\n\n")
	for i, o := range b.Options {
		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, o.Title)
		sb.WriteString(o.Description)
		sb.WriteString("\n\n")
		for _, c := range o.Consequences {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
		fmt.Fprintf(&sb, "\n%s Emotional risk: **%s** · confidence %.0f%%\n\n",
			riskIcons[o.EmotionalRisk], o.EmotionalRisk, o.Confidence*100)
	}

	sb.WriteString("## A question for you\n\n")
	fmt.Fprintf(&sb, "> %s\n\n", b.ControlQuestion)

	sb.WriteString("## Next check-in\n\n")
	fmt.Fprintf(&sb, "**%s**. %s\n\n", b.NextCheckIn.Suggestion, b.NextCheckIn.Reasoning)

	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "_%s_\n", b.Disclaimer)
	return sb.String()
}

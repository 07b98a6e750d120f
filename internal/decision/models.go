// Package decision holds the structured artifacts a pipeline run produces.
package decision

// CalmStepType is the kind of calming action suggested to the user.
type CalmStepType string

const (
	CalmBreathing  CalmStepType = "breathing"
	CalmBreak      CalmStepType = "break"
	CalmJournaling CalmStepType = "journaling"
	CalmMovement   CalmStepType = "movement"
	CalmGrounding  CalmStepType = "grounding"
)

// CalmStep is a single calming action suggestion.
type CalmStep struct {
	Type            CalmStepType `json:"type" validate:"required,oneof=breathing break journaling movement grounding"`
	Title           string       `json:"title" validate:"required,max=100"`
	Description     string       `json:"description" validate:"required,max=500"`
	DurationMinutes int          `json:"duration_minutes" validate:"min=1,max=30"`
}

// RiskLevel is the emotional risk attached to an option.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// DecisionOption is one course of action with its consequences.
type DecisionOption struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description" validate:"required,max=1000"`
	Consequences  []string  `json:"consequences" validate:"min=1,max=5,dive,required"`
	EmotionalRisk RiskLevel `json:"emotional_risk" validate:"required,oneof=low medium high"`
	Confidence    float64   `json:"confidence_level" validate:"gte=0,lte=1"`
}

// NextCheckIn suggests when the user should revisit the decision.
type NextCheckIn struct {
	Suggestion string `json:"suggestion" validate:"required"`
	Reasoning  string `json:"reasoning" validate:"max=200"`
}

// DecisionBrief is the terminal artifact of one pipeline run.
type DecisionBrief struct {
	Options         []DecisionOption `json:"options" validate:"min=2,max=4,dive"`
	CalmStep        CalmStep         `json:"calm_step"`
	ControlQuestion string           `json:"control_question" validate:"min=10,max=300"`
	NextCheckIn     NextCheckIn      `json:"next_check_in"`
	Disclaimer      string           `json:"disclaimer" validate:"required"`
}

// SafetyStatus is the terminal state of the safety gate.
type SafetyStatus string

const (
	SafetyApproved SafetyStatus = "approved"
	SafetyBlocked  SafetyStatus = "blocked"
)

// SafetyVerdict is produced only by the safety validation step.
type SafetyVerdict struct {
	Status          SafetyStatus `json:"status"`
	BlockedReason   string       `json:"blocked_reason,omitempty"`
	UserMessage     string       `json:"-"`
	ToneViolations  []string     `json:"tone_violations"`
	NeedsDisclaimer bool         `json:"needs_disclaimer"`
}

// Safe reports whether the verdict lets the run continue.
func (v SafetyVerdict) Safe() bool {
	return v.Status == SafetyApproved
}

const (
	// Disclaimer is attached to every English brief.
	Disclaimer = "This is decision support, not medical or therapeutic advice. " +
		"For emergencies, contact crisis services: US 988, EU 116 123."

	// DefaultControlQuestion replaces a missing or malformed control question.
	DefaultControlQuestion = "What matters most to you in this decision?"
)

// StressTier buckets a 1-10 stress level.
type StressTier int

const (
	StressLow StressTier = iota
	StressModerate
	StressHigh
)

// TierFor maps a stress level onto its tier: >=7 high, 4-6 moderate, <=3 low.
func TierFor(level int) StressTier {
	switch {
	case level >= 7:
		return StressHigh
	case level >= 4:
		return StressModerate
	default:
		return StressLow
	}
}

// NextCheckInFor derives the check-in suggestion purely from stress level.
func NextCheckInFor(level int, lang string) NextCheckIn {
	return TextsFor(lang).CheckIns[TierFor(level)]
}

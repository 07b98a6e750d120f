package governance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
	EffectFlag  Effect = "flag"
)

// Kind selects which rule set applies to the text.
type Kind string

const (
	// KindInput is raw user content, checked against denied terms.
	KindInput Kind = "input"
	// KindOutput is generated text, checked against flagged patterns.
	KindOutput Kind = "output"
)

// Request contains the text to be evaluated.
type Request struct {
	Kind Kind
	Text string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect  Effect
	Reason  string
	Matches []string
}

// PolicyEngine evaluates text against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine matches denied terms as case-insensitive substrings and
// flagged patterns as case-insensitive regular expressions.
type DefaultPolicyEngine struct {
	DeniedTerms []string
	Flagged     []FlagRule
}

// FlagRule is one output pattern. WholeWord rules report the last capture
// group and require a non-word rune (or end of text) right after it.
type FlagRule struct {
	Regex     *regexp.Regexp
	WholeWord bool
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedTerms: make([]string, 0),
		Flagged:     make([]FlagRule, 0),
	}
}

func (e *DefaultPolicyEngine) DenyTerm(term string) {
	e.DeniedTerms = append(e.DeniedTerms, strings.ToLower(term))
}

// FlagPattern registers a raw regular expression. Matching is case-insensitive.
func (e *DefaultPolicyEngine) FlagPattern(pattern string) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return err
	}
	e.Flagged = append(e.Flagged, FlagRule{Regex: re})
	return nil
}

// FlagPhrase registers a literal phrase matched on whole words. RE2's \b is
// ASCII-only and has no lookahead, so the leading edge is matched and the
// trailing edge is checked on the match indices. Neither edge is consumed
// from the next match.
func (e *DefaultPolicyEngine) FlagPhrase(phrase string) {
	re := regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(` + regexp.QuoteMeta(phrase) + `)`)
	e.Flagged = append(e.Flagged, FlagRule{Regex: re, WholeWord: true})
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func (r FlagRule) matches(text string) []string {
	var out []string
	for _, loc := range r.Regex.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[len(loc)-2], loc[len(loc)-1]
		if start < 0 {
			continue
		}
		if r.WholeWord && end < len(text) {
			if next, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(next) {
				continue
			}
		}
		out = append(out, strings.TrimSpace(text[start:end]))
	}
	return out
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	switch req.Kind {
	case KindInput:
		lower := strings.ToLower(req.Text)
		for _, term := range e.DeniedTerms {
			if strings.Contains(lower, term) {
				return Result{
					Effect:  EffectDeny,
					Reason:  fmt.Sprintf("potential self-harm content detected: %s", term),
					Matches: []string{term},
				}, nil
			}
		}
	case KindOutput:
		var matches []string
		for _, rule := range e.Flagged {
			matches = append(matches, rule.matches(req.Text)...)
		}
		if len(matches) > 0 {
			return Result{
				Effect:  EffectFlag,
				Reason:  fmt.Sprintf("%d authoritarian phrase(s) found", len(matches)),
				Matches: matches,
			}, nil
		}
	default:
		return Result{}, fmt.Errorf("unknown request kind %q", req.Kind)
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}

package governance

// crisisTerms indicate possible self-harm. Any match aborts the run.
var crisisTerms = []string{
	// English
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"self-harm",
	"hurt myself",
	"overdose",
	"jump off",
	// Polish
	"samobójstwo",
	"samobójczy",
	"zabić się",
	"zabije się",
	"zabiję się",
	"skończyć z życiem",
	"odebrać sobie życie",
	"samookaleczenie",
	"skrzywdzić się",
	"zrobić sobie krzywdę",
	"przedawkowanie",
	"skoczyć z",
	"powiesić się",
	"chcę umrzeć",
	"nie chcę żyć",
}

// authoritarianPhrases mark commanding language in generated text.
var authoritarianPhrases = []string{
	// English
	"you must",
	"you should",
	"you need to",
	"do this now",
	"this is what you have to do",
	// Polish
	"musisz",
	"powinieneś",
	"powinnaś",
	"zrób to teraz",
	"to musisz zrobić",
	"nie masz wyboru",
	"jest tylko jedna opcja",
	"jedyna słuszna",
}

// CrisisTerms returns a copy of the built-in crisis term list.
func CrisisTerms() []string {
	return append([]string(nil), crisisTerms...)
}

// NewCrisisPolicyEngine returns an engine preloaded with the built-in crisis
// terms and authoritarian tone phrases.
func NewCrisisPolicyEngine() *DefaultPolicyEngine {
	e := NewDefaultPolicyEngine()
	for _, t := range crisisTerms {
		e.DenyTerm(t)
	}
	for _, p := range authoritarianPhrases {
		e.FlagPhrase(p)
	}
	return e
}

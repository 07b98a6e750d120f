package decision

// Supported response languages.
const (
	LangEnglish = "en"
	LangPolish  = "pl"
)

// Texts are the fixed user-facing strings of a brief in one language.
type Texts struct {
	Disclaimer             string
	DefaultControlQuestion string
	CheckIns               map[StressTier]NextCheckIn
}

var texts = map[string]Texts{
	LangEnglish: {
		Disclaimer:             Disclaimer,
		DefaultControlQuestion: DefaultControlQuestion,
		CheckIns: map[StressTier]NextCheckIn{
			StressHigh: {
				Suggestion: "30 minutes to 1 hour",
				Reasoning:  "High stress benefits from a short break before revisiting",
			},
			StressModerate: {
				Suggestion: "A few hours or tomorrow morning",
				Reasoning:  "Moderate stress suggests sleeping on it could help",
			},
			StressLow: {
				Suggestion: "Whenever you feel ready",
				Reasoning:  "Your stress level is manageable; take the time you need",
			},
		},
	},
	LangPolish: {
		Disclaimer: "To jest wsparcie w podejmowaniu decyzji, a nie porada medyczna ani terapeutyczna. " +
			"W nagłych wypadkach: Polska 116 123 | Telefon Zaufania dla Dzieci i Młodzieży 116 111.",
		DefaultControlQuestion: "Co jest dla Ciebie najważniejsze w tej decyzji?",
		CheckIns: map[StressTier]NextCheckIn{
			StressHigh: {
				Suggestion: "Za 30 minut do godziny",
				Reasoning:  "Przy wysokim stresie krótka przerwa przed powrotem do decyzji pomaga",
			},
			StressModerate: {
				Suggestion: "Za kilka godzin lub jutro rano",
				Reasoning:  "Przy umiarkowanym stresie warto prześpać się z decyzją",
			},
			StressLow: {
				Suggestion: "Kiedy poczujesz się gotowy lub gotowa",
				Reasoning:  "Twój poziom stresu jest do opanowania; daj sobie tyle czasu, ile potrzebujesz",
			},
		},
	},
}

// TextsFor returns the strings for lang, falling back to English.
func TextsFor(lang string) Texts {
	if t, ok := texts[lang]; ok {
		return t
	}
	return texts[LangEnglish]
}

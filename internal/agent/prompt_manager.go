package agent

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed prompts/*.md
var defaultPrompts embed.FS

var languageDirectives = map[string]string{
	"en": "IMPORTANT: Respond ONLY in English. Keep JSON keys exactly as shown.",
	"pl": "WAŻNE: Odpowiadaj WYŁĄCZNIE po polsku. Cała komunikacja z użytkownikiem musi być w języku polskim. Klucze JSON pozostaw bez zmian.",
}

// PromptManager resolves step system prompts. A file named <step>.md in
// Directory overrides the built-in prompt for that step.
type PromptManager struct {
	Directory string
	Language  string
}

func NewPromptManager(dir, language string) *PromptManager {
	if language == "" {
		language = "en"
	}
	return &PromptManager{Directory: dir, Language: language}
}

// GetStepPrompt returns the system prompt for a step with the language
// directive appended.
func (pm *PromptManager) GetStepPrompt(step StepName) (string, error) {
	name := string(step) + ".md"

	var data []byte
	var err error
	if pm.Directory != "" {
		data, err = os.ReadFile(filepath.Join(pm.Directory, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read prompt override %s: %w", name, err)
		}
	}
	if len(data) == 0 {
		data, err = defaultPrompts.ReadFile("prompts/" + name)
		if err != nil {
			return "", fmt.Errorf("no prompt for step %s: %w", step, err)
		}
	}

	directive, ok := languageDirectives[pm.Language]
	if !ok {
		return "", fmt.Errorf("unsupported language %q", pm.Language)
	}
	return strings.TrimSpace(string(data)) + "\n\n" + directive, nil
}

package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var errNoJSON = errors.New("no JSON object found in response")

// fencePattern matches ```json ... ``` and untagged ``` ... ``` blocks.
var fencePattern = regexp.MustCompile("(?s)```(\\w*)\\s*\\n(.+?)\\n?```")

// decodeJSON pulls a JSON object out of a model response, which may be bare,
// wrapped in a markdown fence, or embedded in prose, and unmarshals it.
func decodeJSON(response string, v any) error {
	raw, err := extractJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func extractJSON(response string) (string, error) {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	for _, m := range fencePattern.FindAllStringSubmatch(response, -1) {
		lang := strings.ToLower(m[1])
		body := strings.TrimSpace(m[2])
		if lang != "" && lang != "json" {
			continue
		}
		if strings.HasPrefix(body, "{") && json.Valid([]byte(body)) {
			return body, nil
		}
	}

	if start := strings.Index(response, "{"); start >= 0 {
		if obj := balancedObject(response[start:]); obj != "" && json.Valid([]byte(obj)) {
			return obj, nil
		}
	}
	return "", errNoJSON
}

// balancedObject returns the prefix of s up to the brace closing s[0],
// skipping braces inside string literals.
func balancedObject(s string) string {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

// strictPolicy strips all markup from model-generated text.
var strictPolicy = bluemonday.StrictPolicy()

// sanitize removes HTML from s and returns trimmed plain text. Entities are
// decoded before sanitizing so that escaped tags are stripped as well.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(html.UnescapeString(s))))
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

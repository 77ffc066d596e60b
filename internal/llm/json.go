package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var reCodeFence = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ExtractJSON pulls a JSON document out of a collaborator reply. It accepts
// bare JSON, JSON inside a Markdown code fence, and JSON embedded in prose.
// For prose, each '[' or '{' is tried in order and the first bracket-balanced
// span that parses wins. It returns "" when nothing parses.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	if m := reCodeFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if json.Valid([]byte(s)) {
		return s
	}

	for i := 0; i < len(s); i++ {
		if s[i] != '[' && s[i] != '{' {
			continue
		}
		end := balancedEnd(s, i)
		if end < 0 {
			continue
		}
		if candidate := s[i : end+1]; json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return ""
}

// balancedEnd returns the index of the bracket closing the one at start, or
// -1. Brackets inside JSON strings are ignored.
func balancedEnd(s string, start int) int {
	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// DecodeJSON extracts JSON from text and unmarshals it into v. Any failure
// wraps ErrParse.
func DecodeJSON(text string, v any) error {
	raw := ExtractJSON(text)
	if raw == "" {
		return fmt.Errorf("%w: no JSON found", ErrParse)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

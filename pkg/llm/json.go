package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> blocks at the start of LLM
// responses. Reasoning models emit these ahead of the actual answer.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// StripThinking removes a leading <think>...</think> block from an LLM
// response. Use this for responses consumed as raw text (generated SQL,
// composed prose); ExtractJSON already strips the block for JSON payloads.
func StripThinking(response string) string {
	return thinkTagPattern.ReplaceAllString(response, "")
}

// ExtractJSON pulls the JSON payload out of an LLM response, tolerating a
// leading think block and prose before or after the payload. The first
// balanced object or array that validates wins, whichever bracket appears
// earlier in the text. A response that is nothing but a bare JSON scalar is
// returned as-is.
func ExtractJSON(response string) (string, error) {
	cleaned := StripThinking(response)

	spans := [2][2]byte{{'{', '}'}, {'[', ']'}}
	obj := strings.IndexByte(cleaned, '{')
	arr := strings.IndexByte(cleaned, '[')
	if obj < 0 || (arr >= 0 && arr < obj) {
		spans[0], spans[1] = spans[1], spans[0]
	}

	for _, span := range spans {
		payload, ok := balancedSpan(cleaned, span[0], span[1])
		if ok && json.Valid([]byte(payload)) {
			return payload, nil
		}
	}

	if trimmed := strings.TrimSpace(cleaned); json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", errors.New("no valid JSON found in response")
}

// balancedSpan returns the first balanced bracket span in s, from the first
// opener byte to its matching closer. Brackets inside JSON strings do not
// count toward the depth, and backslash escapes inside strings are honored.
func balancedSpan(s string, opener, closer byte) (string, bool) {
	start := strings.IndexByte(s, opener)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		switch c := s[i]; {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == opener:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts the JSON payload from an LLM response and
// unmarshals it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var parsed T

	payload, err := ExtractJSON(response)
	if err != nil {
		return parsed, err
	}

	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return parsed, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return parsed, nil
}

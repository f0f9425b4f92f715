package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON extracts JSON content from a model response that may contain
// <think> tags, markdown code fences, or surrounding prose.
func ExtractJSON(response string) (string, error) {
	cleaned := stripThinkTags(response)

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if jsonStr, ok := extractBalancedJSON(cleaned, '{', '}'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	if arrStart >= 0 {
		if jsonStr, ok := extractBalancedJSON(cleaned, '[', ']'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// stripThinkTags removes a leading <think>...</think> block. Reasoning models
// emit these before the actual answer.
func stripThinkTags(response string) string {
	trimmed := strings.TrimLeft(response, " \t\n\r")
	if !strings.HasPrefix(trimmed, "<think>") {
		return response
	}
	end := strings.Index(trimmed, "</think>")
	if end < 0 {
		return response
	}
	return trimmed[end+len("</think>"):]
}

// extractBalancedJSON finds the first balanced JSON structure starting with
// openChar, counting bracket depth and skipping string contents.
func extractBalancedJSON(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the target.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}

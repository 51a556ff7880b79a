package jsonutils

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoObject = errors.New("no JSON object found in input")

// ExtractObject returns the first balanced {...} substring of input, or ""
// if none exists. Brace matching skips braces inside string literals so
// models that wrap JSON in prose or code fences are handled.
func ExtractObject(input string) string {
	start := strings.IndexByte(input, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return input[start : i+1]
				}
			}
		}
	}
	return ""
}

// UnmarshalObject parses model output into v. It attempts a strict parse of
// the whole (trimmed) input first, then falls back to the first balanced
// {...} substring. Anything less parses as an error; there is no
// partial-field recovery.
func UnmarshalObject(input string, v interface{}) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ErrNoObject
	}

	strictErr := json.Unmarshal([]byte(trimmed), v)
	if strictErr == nil {
		return nil
	}

	extracted := ExtractObject(trimmed)
	if extracted == "" {
		return strictErr
	}
	return json.Unmarshal([]byte(extracted), v)
}

// ToJSON serializes a Go value to a JSON string with indentation.
// Returns an empty string if serialization fails.
func ToJSON(v interface{}) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(bytes))
}

// File path: internal/llm/extract.go
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoJSONObject is returned when model output holds no complete JSON object.
var ErrNoJSONObject = errors.New("no JSON object in model output")

// ParseError describes model output that could not be turned into a value.
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractJSON returns the first balanced {...} object in text, preferring
// the earliest opening brace that is ever closed. Braces inside JSON strings
// are ignored, so prose, markdown fences and trailing commentary around the
// object are tolerated. The scan is a single pass over text.
func ExtractJSON(text string) (string, error) {
	var open []int
	bestStart, bestEnd := -1, -1
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
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
			// Quotes in surrounding prose are not strings.
			if len(open) > 0 {
				inString = true
			}
		case '{':
			open = append(open, i)
		case '}':
			if len(open) == 0 {
				continue
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			if len(open) == 0 {
				return text[start : i+1], nil
			}
			// An unclosed brace sits below this pair; remember the
			// outermost pair seen so far.
			if bestStart < 0 || start < bestStart {
				bestStart, bestEnd = start, i
			}
		}
	}
	if bestStart >= 0 {
		return text[bestStart : bestEnd+1], nil
	}
	return "", &ParseError{Excerpt: excerpt(text), Err: ErrNoJSONObject}
}

// DecodeJSON extracts the first JSON object from text and unmarshals it into v.
func DecodeJSON(text string, v interface{}) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &ParseError{Excerpt: excerpt(raw), Err: err}
	}
	return nil
}

func excerpt(text string) string {
	const max = 200
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

package ai

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/khrees2412/applytrack/internal/apperr"
)

// JobAnalysis is the structured result of Analyze
type JobAnalysis struct {
	Company          string   `json:"company"`
	Position         string   `json:"position"`
	KeySkills        []string `json:"keySkills"`
	Requirements     []string `json:"requirements"`
	Responsibilities []string `json:"responsibilities"`
	Summary          string   `json:"summary"`
}

// UnmarshalJSON accepts any well-formed object. Models are loose with types:
// a list may arrive as one comma separated string, a string as a number.
func (a *JobAnalysis) UnmarshalJSON(data []byte) error {
	var raw struct {
		Company          json.RawMessage `json:"company"`
		Position         json.RawMessage `json:"position"`
		KeySkills        json.RawMessage `json:"keySkills"`
		Requirements     json.RawMessage `json:"requirements"`
		Responsibilities json.RawMessage `json:"responsibilities"`
		Summary          json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = JobAnalysis{
		Company:          looseString(raw.Company),
		Position:         looseString(raw.Position),
		KeySkills:        looseList(raw.KeySkills),
		Requirements:     looseList(raw.Requirements),
		Responsibilities: looseList(raw.Responsibilities),
		Summary:          looseString(raw.Summary),
	}
	return nil
}

// looseString renders any JSON value as text; lists are joined with ", "
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.TrimSpace(s)
		}
	case '[':
		return strings.Join(looseList(raw), ", ")
	}
	return string(raw)
}

// looseList reads a list, or splits a single string on commas and newlines
func looseList(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			return nil
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s := looseString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case '"':
		var out []string
		for _, part := range strings.FieldsFunc(looseString(raw), func(r rune) bool { return r == ',' || r == '\n' }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return []string{looseString(raw)}
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON finds the JSON object in a model reply. A fenced block wins;
// otherwise the span runs from the first '{' to the last '}'.
func ExtractJSON(text string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseAnalysis extracts and decodes a JobAnalysis from a model reply
func ParseAnalysis(text string) (*JobAnalysis, error) {
	span, ok := ExtractJSON(text)
	if !ok {
		return nil, apperr.New(apperr.ErrAIParse, "analyze", "Could not parse AI response")
	}
	var a JobAnalysis
	if err := json.Unmarshal([]byte(span), &a); err != nil {
		return nil, apperr.Wrap(apperr.ErrAIParse, "analyze", err)
	}
	return &a, nil
}

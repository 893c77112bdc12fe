package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	maxListItems      = 50
	maxMainContentLen = 10000
	defaultUsefulness = 5
)

// ErrUnparseable is returned when a model reply holds no JSON object.
var ErrUnparseable = errors.New("could not parse model response")

// Heading is one heading as the model understood it.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Entity is a named thing the model found on the page.
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Unprocessable describes content the model could not use.
type Unprocessable struct {
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// Usefulness is the model's 0..10 rating of the page.
type Usefulness struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// Extraction is the parsed reply of one reader model.
type Extraction struct {
	ExtractedTitle       string          `json:"extractedTitle"`
	ExtractedDescription string          `json:"extractedDescription"`
	PrimaryTopic         string          `json:"primaryTopic"`
	Headings             []Heading       `json:"headings"`
	MainContent          string          `json:"mainContent"`
	Entities             []Entity        `json:"entities"`
	UnprocessableContent []Unprocessable `json:"unprocessableContent"`
	Usefulness           Usefulness      `json:"usefulnessAssessment"`
}

type rawExtraction struct {
	ExtractedTitle       string          `json:"extractedTitle"`
	ExtractedDescription string          `json:"extractedDescription"`
	PrimaryTopic         string          `json:"primaryTopic"`
	Headings             []Heading       `json:"headings"`
	MainContent          string          `json:"mainContent"`
	Entities             []Entity        `json:"entities"`
	UnprocessableContent []Unprocessable `json:"unprocessableContent"`
	Usefulness           *struct {
		Score       *float64 `json:"score"`
		Explanation string   `json:"explanation"`
	} `json:"usefulnessAssessment"`
}

// ParseExtraction pulls the first JSON object out of a model reply and
// applies the output caps.
func ParseExtraction(raw []byte) (Extraction, error) {
	text := string(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Extraction{}, ErrUnparseable
	}
	var parsed rawExtraction
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return Extraction{}, fmt.Errorf("parse error: %w", err)
	}

	out := Extraction{
		ExtractedTitle:       strings.TrimSpace(parsed.ExtractedTitle),
		ExtractedDescription: strings.TrimSpace(parsed.ExtractedDescription),
		PrimaryTopic:         strings.TrimSpace(parsed.PrimaryTopic),
		Headings:             capSlice(parsed.Headings, maxListItems),
		MainContent:          truncate(parsed.MainContent, maxMainContentLen),
		Entities:             capSlice(parsed.Entities, maxListItems),
		UnprocessableContent: parsed.UnprocessableContent,
		Usefulness:           Usefulness{Score: defaultUsefulness},
	}
	if u := parsed.Usefulness; u != nil {
		out.Usefulness.Explanation = strings.TrimSpace(u.Explanation)
		if u.Score != nil {
			out.Usefulness.Score = ClampUsefulness(*u.Score)
		}
	}
	return out, nil
}

// ClampUsefulness bounds a score to 0..10 with one decimal.
func ClampUsefulness(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(0, math.Min(10, v))
	return math.Round(v*10) / 10
}

func capSlice[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

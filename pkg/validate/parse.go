// Package validate turns raw model output into a schema.Story and runs the
// vocabulary and educational gates over it. A candidate is accepted or
// rejected whole; nothing here repairs a document.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"ainia/pkg/apierr"
	"ainia/pkg/prompt"
	"ainia/pkg/schema"
)

// MalformedJSONError is returned when the model output is not parseable JSON.
type MalformedJSONError struct {
	Err error
}

func (e *MalformedJSONError) Error() string { return "malformed json: " + e.Err.Error() }
func (e *MalformedJSONError) Unwrap() error { return e.Err }

// SchemaViolationError names the first field of a parsed document that does
// not match the story shape.
type SchemaViolationError struct {
	Field   string
	Problem string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation at %s: %s", e.Field, e.Problem)
}

var (
	thinkBlock = regexp.MustCompile(`(?s)^\s*<think>.*?</think>`)
	fence      = regexp.MustCompile("```[a-zA-Z]*[ \t]*\r?\n?")
)

// Clean strips a leading reasoning block and markdown code fences.
func Clean(raw string) string {
	s := thinkBlock.ReplaceAllString(raw, "")
	s = fence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func malformed(err error) error {
	return apierr.New(apierr.KindMalformedOutput, "Invalid response format from AI. Please try again.", &MalformedJSONError{Err: err})
}

func violation(field, problem string) error {
	return apierr.New(apierr.KindMalformedOutput,
		fmt.Sprintf("Generated story has an invalid %s. Please try again.", field),
		&SchemaViolationError{Field: field, Problem: problem})
}

// Parse decodes raw model output into a Story and enforces its shape.
// Failures are apierr.KindMalformedOutput wrapping either a *MalformedJSONError
// or a *SchemaViolationError.
func Parse(raw string) (schema.Story, error) {
	text := Clean(raw)
	if text == "" {
		return schema.Story{}, malformed(errors.New("empty document"))
	}

	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return schema.Story{}, malformed(err)
	}
	if _, ok := generic.(map[string]any); !ok {
		return schema.Story{}, violation("document", "expected an object")
	}

	var story schema.Story
	if err := json.Unmarshal([]byte(text), &story); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return schema.Story{}, violation(cmpField(typeErr.Field), "expected "+typeErr.Type.String()+", got "+typeErr.Value)
		}
		return schema.Story{}, malformed(err)
	}

	if err := checkShape(story); err != nil {
		return schema.Story{}, err
	}
	return story, nil
}

func cmpField(f string) string {
	if f == "" {
		return "document"
	}
	return f
}

func minLen(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

func checkShape(s schema.Story) error {
	if len(s.Steps) != schema.StepCount {
		return violation("steps", fmt.Sprintf("must have exactly %d story steps, got %d", schema.StepCount, len(s.Steps)))
	}
	for i, step := range s.Steps {
		if strings.TrimSpace(step) == "" {
			return violation(fmt.Sprintf("steps[%d]", i), "blank step")
		}
	}

	if len(s.Choices) != schema.ChoiceCount {
		return violation("choices", fmt.Sprintf("must have %d choice pairs, got %d", schema.ChoiceCount, len(s.Choices)))
	}
	for i, pair := range s.Choices {
		if len(pair) != schema.ChoiceWidth {
			return violation(fmt.Sprintf("choices[%d]", i), fmt.Sprintf("must have exactly %d choices, got %d", schema.ChoiceWidth, len(pair)))
		}
		for j, c := range pair {
			if strings.TrimSpace(c) == "" {
				return violation(fmt.Sprintf("choices[%d][%d]", i, j), "blank choice")
			}
		}
	}

	cp := s.Checkpoint
	switch {
	case !minLen(cp.Question, 5):
		return violation("checkpoint.question", "checkpoint question too short")
	case !minLen(cp.Expected, 1):
		return violation("checkpoint.expected", "expected answer required")
	case !cp.Type.Valid():
		return violation("checkpoint.type", fmt.Sprintf("must be %q or %q, got %q", schema.CheckpointCompare, schema.CheckpointCount, cp.Type))
	}

	if !minLen(s.Hint, 5) {
		return violation("hint", "hint too short")
	}

	pd := s.ParentDigest
	switch {
	case len(pd.Skills) < 1:
		return violation("parent_digest.skills", "at least one skill required")
	case !minLen(pd.Note, 10):
		return violation("parent_digest.note", "parent note too short")
	case !minLen(pd.HomeActivity, 5):
		return violation("parent_digest.home_activity", "home activity required")
	}
	return nil
}

// CheckCheckpointType requires the checkpoint style the prompt asked for at age.
func CheckCheckpointType(s schema.Story, age int) error {
	want := prompt.CheckpointTypeFor(age)
	if s.Checkpoint.Type != want {
		return violation("checkpoint.type", fmt.Sprintf("age %d expects %q, got %q", age, want, s.Checkpoint.Type))
	}
	return nil
}

package schema

import (
	"fmt"
	"strings"
)

type Theme string

const (
	ThemeSpace  Theme = "Space"
	ThemeForest Theme = "Forest"
)

var Themes = []Theme{ThemeSpace, ThemeForest}

// ParseTheme accepts only the exact enumerated names.
func ParseTheme(s string) (Theme, error) {
	for _, t := range Themes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("theme must be one of %s, got %q", strings.Join([]string{string(ThemeSpace), string(ThemeForest)}, ", "), s)
}

type CheckpointType string

const (
	CheckpointCompare CheckpointType = "compare"
	CheckpointCount   CheckpointType = "count"
)

func (c CheckpointType) Valid() bool {
	return c == CheckpointCompare || c == CheckpointCount
}

const (
	MinAge = 4
	MaxAge = 12

	// YoungMaxAge is the oldest age in the "young" band. It selects both the
	// checkpoint type and the vocabulary list offered to the model.
	YoungMaxAge = 6

	StepCount   = 3
	ChoiceCount = 3
	ChoiceWidth = 2
)

// Young reports whether age falls in the young band.
func Young(age int) bool { return age <= YoungMaxAge }

// Story is a validated story document. It is accepted or discarded whole.
type Story struct {
	Steps        []string     `json:"steps" jsonschema:"minItems=3,maxItems=3" jsonschema_description:"Exactly three story steps; each step builds on the previous one"`
	Choices      [][]string   `json:"choices" jsonschema:"minItems=3,maxItems=3" jsonschema_description:"Exactly three pairs of two short choice labels"`
	Checkpoint   Checkpoint   `json:"checkpoint" jsonschema_description:"Single comprehension question about the topic"`
	Hint         string       `json:"hint" jsonschema_description:"Friendly reminder of the most important idea"`
	ParentDigest ParentDigest `json:"parent_digest" jsonschema_description:"Summary for the guardian"`
}

type Checkpoint struct {
	Question string         `json:"question" jsonschema_description:"Quiz question about the topic in simple words"`
	Expected string         `json:"expected" jsonschema_description:"Answer a child of the requested age would give"`
	Type     CheckpointType `json:"type" jsonschema:"enum=compare,enum=count" jsonschema_description:"count for the young band, compare otherwise"`
}

type ParentDigest struct {
	Skills       []string `json:"skills" jsonschema:"minItems=1" jsonschema_description:"Skills the child practiced"`
	Note         string   `json:"note" jsonschema_description:"Short note to the parent"`
	HomeActivity string   `json:"home_activity" jsonschema_description:"Activity to try together at home"`
}

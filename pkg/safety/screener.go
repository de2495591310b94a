// Package safety gates caller input before any generation request is built.
package safety

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"ainia/pkg/apierr"
	"ainia/pkg/lexicon"
	"ainia/pkg/schema"
)

const (
	MinTopicLength = 2
	MaxTopicLength = 200

	// SpamRun is the shortest run of one repeated character treated as spam.
	SpamRun = 6
)

type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
	Term   string `json:"-"`
}

type Screener struct {
	lex *lexicon.Store
}

func NewScreener(lex *lexicon.Store) *Screener {
	return &Screener{lex: lex}
}

// Screen checks a topic against the banned lexicon, the length bounds and the
// spam pattern, in that order, stopping at the first failure.
func (s *Screener) Screen(topic string) Verdict {
	trimmed := strings.ToLower(strings.TrimSpace(topic))

	if term, ok := s.lex.ContainsAny(trimmed, lexicon.BannedTopics...); ok {
		return Verdict{
			Reason: fmt.Sprintf("Topic contains inappropriate content for children: %q", term),
			Term:   term,
		}
	}

	switch n := utf8.RuneCountInString(trimmed); {
	case n < MinTopicLength:
		return Verdict{Reason: "Topic is too short"}
	case n > MaxTopicLength:
		return Verdict{Reason: "Topic is too long"}
	}

	if hasRun(trimmed, SpamRun) {
		return Verdict{Reason: "Invalid input pattern"}
	}

	return Verdict{Safe: true}
}

// Check is Screen as an error.
func (s *Screener) Check(topic string) error {
	v := s.Screen(topic)
	if v.Safe {
		return nil
	}
	return apierr.New(apierr.KindSafety, v.Reason, nil)
}

// hasRun reports whether any rune repeats at least n times in a row.
// Equivalent to the regexp (.)\1{n-1,}, which RE2 cannot express.
func hasRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if run > 0 && r == prev && r != '\n' {
			run++
		} else {
			run = 1
			prev = r
		}
		if run >= n {
			return true
		}
	}
	return false
}

func ValidateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apierr.Newf(apierr.KindInput, "A signed-in user is required")
	}
	return nil
}

func ValidateTheme(theme string) (schema.Theme, error) {
	t, err := schema.ParseTheme(theme)
	if err != nil {
		return "", apierr.New(apierr.KindInput, "Invalid theme: "+err.Error(), nil)
	}
	return t, nil
}

func ValidateTopic(topic string) error {
	switch {
	case !utf8.ValidString(topic):
		return apierr.Newf(apierr.KindInput, "Invalid topic: text is not valid UTF-8")
	case strings.TrimSpace(topic) == "":
		return apierr.Newf(apierr.KindInput, "Invalid topic: please type what you want to learn about")
	case strings.IndexFunc(topic, unicode.IsControl) >= 0:
		return apierr.Newf(apierr.KindInput, "Invalid topic: contains control characters")
	}
	return nil
}

func ValidateAge(age int) error {
	if age < schema.MinAge || age > schema.MaxAge {
		return apierr.Newf(apierr.KindInput, "Age must be between %d and %d years old", schema.MinAge, schema.MaxAge)
	}
	return nil
}

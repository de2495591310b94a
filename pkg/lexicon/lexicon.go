// Package lexicon holds the static word and phrase lists every moderation gate
// matches against. The lists are versioned and loaded once at startup.
package lexicon

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ainia/pkg/utils"
)

type Category string

const (
	Explicit         Category = "explicit"
	Scary            Category = "scary"
	AgeInappropriate Category = "age_inappropriate"
	PersonalInfo     Category = "personal_info"
	WarningPhrases   Category = "warning_phrases"
	BannedComplexity Category = "banned_complexity"

	ScientificPhrases Category = "scientific_phrases"
	ScientificWords   Category = "scientific_words"

	YoungVocabulary Category = "young_vocabulary"
	OlderVocabulary Category = "older_vocabulary"

	ExplanatoryMarkers Category = "explanatory_markers"
	AnalogyMarkers     Category = "analogy_markers"
	ConnectionMarkers  Category = "connection_markers"
	VaguePhrases       Category = "vague_phrases"
	DefinitionMarkers  Category = "definition_markers"
	CausalMarkers      Category = "causal_markers"
	SentenceStarters   Category = "sentence_starters"
)

// BannedTopics lists every category a topic is screened against, in scan order.
var BannedTopics = []Category{
	Explicit,
	Scary,
	AgeInappropriate,
	PersonalInfo,
	WarningPhrases,
	BannedComplexity,
}

type Theme struct {
	Description string   `json:"description"`
	Vocabulary  []string `json:"vocabulary"`
	Characters  []string `json:"characters"`
}

type document struct {
	Version    string                `json:"version"`
	Categories map[Category][]string `json:"categories"`
	Themes     map[string]Theme      `json:"themes"`
}

//go:embed lexicon.json
var embedded []byte

// Store is an immutable, loaded lexicon. It is safe for concurrent use.
type Store struct {
	version string
	words   map[Category][]string
	lower   map[Category][]string
	themes  map[string]Theme
}

// Default returns the lexicon compiled into the binary.
func Default() (*Store, error) {
	var doc document
	if err := json.Unmarshal(embedded, &doc); err != nil {
		return nil, fmt.Errorf("decode embedded lexicon: %w", err)
	}
	return build(doc)
}

// MustDefault is Default for package-level setup and tests.
func MustDefault() *Store {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}

// Load reads a lexicon override from path. An empty path yields the embedded lexicon.
func Load(path string) (*Store, error) {
	if path == "" {
		return Default()
	}
	doc, err := utils.Load[document](path)
	if err != nil {
		return nil, fmt.Errorf("load lexicon %s: %w", path, err)
	}
	return build(doc)
}

func build(doc document) (*Store, error) {
	if strings.TrimSpace(doc.Version) == "" {
		return nil, errors.New("lexicon version is required")
	}
	for _, c := range BannedTopics {
		if len(doc.Categories[c]) == 0 {
			return nil, fmt.Errorf("lexicon %s: category %q is empty", doc.Version, c)
		}
	}
	for _, name := range []string{"Space", "Forest"} {
		if _, ok := doc.Themes[name]; !ok {
			return nil, fmt.Errorf("lexicon %s: theme %q missing", doc.Version, name)
		}
	}

	s := &Store{
		version: doc.Version,
		words:   make(map[Category][]string, len(doc.Categories)),
		lower:   make(map[Category][]string, len(doc.Categories)),
		themes:  doc.Themes,
	}
	for c, words := range doc.Categories {
		s.words[c] = words
		lw := make([]string, 0, len(words))
		for _, w := range words {
			lw = append(lw, strings.ToLower(w))
		}
		s.lower[c] = lw
	}
	return s, nil
}

func (s *Store) Version() string { return s.version }

// Words returns a copy of a category's list in its stored order.
func (s *Store) Words(c Category) []string {
	return append([]string(nil), s.words[c]...)
}

func (s *Store) Theme(name string) (Theme, bool) {
	t, ok := s.themes[name]
	return t, ok
}

// ContainsAny reports the first term of the given categories that occurs in text,
// ignoring case. Categories are scanned in argument order, terms in list order.
func (s *Store) ContainsAny(text string, categories ...Category) (string, bool) {
	lt := strings.ToLower(text)
	for _, c := range categories {
		for i, term := range s.lower[c] {
			if term != "" && strings.Contains(lt, term) {
				return s.words[c][i], true
			}
		}
	}
	return "", false
}

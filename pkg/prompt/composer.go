// Package prompt builds the generation request for one story.
package prompt

import (
	"fmt"
	"strings"

	"ainia/pkg/lexicon"
	"ainia/pkg/schema"
)

// Text is a composed request. It is built for exactly one generation call.
type Text struct {
	System string
	User   string
}

// Combined joins both parts for backends without a separate system role.
func (t Text) Combined() string {
	return t.System + "\n\n" + t.User
}

const (
	themeWordLimit = 8
	ageWordLimit   = 12
)

type Composer struct {
	lex *lexicon.Store
}

func NewComposer(lex *lexicon.Store) *Composer {
	return &Composer{lex: lex}
}

// CheckpointTypeFor picks the checkpoint style a child of age can answer.
func CheckpointTypeFor(age int) schema.CheckpointType {
	if schema.Young(age) {
		return schema.CheckpointCount
	}
	return schema.CheckpointCompare
}

func (c *Composer) Compose(theme schema.Theme, topic string, age int) Text {
	topic = strings.TrimSpace(topic)
	return Text{
		System: c.system(age),
		User:   c.user(theme, topic, age),
	}
}

func (c *Composer) system(age int) string {
	forbidden := c.lex.Words(lexicon.ScientificWords)
	return fmt.Sprintf(systemPrompt, age, strings.Join(quoteAll(forbidden), ", "))
}

func (c *Composer) user(theme schema.Theme, topic string, age int) string {
	ctx := c.themeContext(theme, age)
	kind := CheckpointTypeFor(age)

	var b strings.Builder
	fmt.Fprintf(&b, "Create a fun, logical story about %q for a %d-year-old! Each step should build on the last one.\n\n", topic, age)
	fmt.Fprintf(&b, "TOPIC: %s\nAGE: %d years old\nTHEME: %s\n\n", topic, age, ctx)
	fmt.Fprintf(&b, storySteps, topic)
	b.WriteString("\n")
	fmt.Fprintf(&b, checkpointRule, kind, checkpointHint(kind))
	b.WriteString("\n")
	fmt.Fprintf(&b, outputShape, topic, age, kind)
	return b.String()
}

func (c *Composer) themeContext(theme schema.Theme, age int) string {
	t, ok := c.lex.Theme(string(theme))
	if !ok {
		return fmt.Sprintf("Create a gentle, age-appropriate story for a %d-year-old child.", age)
	}

	band := lexicon.OlderVocabulary
	if schema.Young(age) {
		band = lexicon.YoungVocabulary
	}

	var b strings.Builder
	b.WriteString(t.Description)
	fmt.Fprintf(&b, "\n\nTHEME CONTEXT: %s Adventure\n", theme)
	fmt.Fprintf(&b, "- Safe vocabulary: %s\n", strings.Join(head(t.Vocabulary, themeWordLimit), ", "))
	fmt.Fprintf(&b, "- Age-appropriate words: %s\n", strings.Join(head(c.lex.Words(band), ageWordLimit), ", "))
	fmt.Fprintf(&b, "- Friendly characters: %s\n", strings.Join(t.Characters, ", "))
	b.WriteString("- Tone: Wonder, discovery, friendship, and problem-solving\n")
	fmt.Fprintf(&b, "- Avoid: Anything scary, dangerous, or too complex for age %d\n\n", age)
	fmt.Fprintf(&b, "For %d-year-olds, use simple sentences and focus on positive emotions and learning.", age)
	return b.String()
}

func checkpointHint(kind schema.CheckpointType) string {
	if kind == schema.CheckpointCount {
		return "ask the child to count something from the story (for example: how many stars did we spot?)"
	}
	return "ask the child to compare two things from the story (for example: which is bigger, the sun or the moon?)"
}

func head(words []string, n int) []string {
	if len(words) > n {
		return words[:n]
	}
	return words
}

func quoteAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = fmt.Sprintf("%q", w)
	}
	return out
}

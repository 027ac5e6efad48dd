// Package content loads the party facts and canned responses HQ uses.
package content

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultPack []byte

// Event describes the party itself.
type Event struct {
	Name  string `yaml:"name"`
	Date  string `yaml:"date"`
	Venue string `yaml:"venue"`
	Host  string `yaml:"host"`
}

// Answers are the canned replies for the complete-state commands.
type Answers struct {
	Food      string `yaml:"food"`
	Rules     string `yaml:"rules"`
	Logistics string `yaml:"logistics"`
	GiftIdeas string `yaml:"gift_ideas"`
	Help      string `yaml:"help"`
	Exit      string `yaml:"exit"`
}

// Words seeds the offline codename generator.
type Words struct {
	Adjectives []string `yaml:"adjectives"`
	Nouns      []string `yaml:"nouns"`
}

// Pack is the full content bundle.
type Pack struct {
	Event             Event    `yaml:"event"`
	Greeting          string   `yaml:"greeting"`
	WelcomeBack       string   `yaml:"welcome_back"`
	PersonalityIntro  string   `yaml:"personality_intro"`
	FallbackQuestions []string `yaml:"fallback_questions"`
	Answers           Answers  `yaml:"answers"`
	CodenameWords     Words    `yaml:"codename_words"`
}

// Default returns the embedded content pack.
func Default() *Pack {
	p, err := Parse(defaultPack)
	if err != nil {
		panic(fmt.Sprintf("embedded content pack is invalid: %v", err))
	}
	return p
}

// Load reads a content pack from path, or the embedded default when path is
// empty.
func Load(path string) (*Pack, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content pack: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML content pack.
func Parse(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode content pack: %w", err)
	}
	if len(p.FallbackQuestions) == 0 {
		return nil, fmt.Errorf("content pack needs at least one fallback question")
	}
	if strings.TrimSpace(p.Greeting) == "" {
		return nil, fmt.Errorf("content pack needs a greeting")
	}
	return &p, nil
}

// Render substitutes {event}, {date}, {venue} and the given extra
// placeholders into text.
func (p *Pack) Render(text string, vars map[string]string) string {
	pairs := []string{
		"{event}", p.Event.Name,
		"{date}", p.Event.Date,
		"{venue}", p.Event.Venue,
	}
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// FallbackQuestion returns the question for a zero-based round, clamped to
// the last entry when round exceeds the list.
func (p *Pack) FallbackQuestion(round int) string {
	if round < 0 {
		round = 0
	}
	if round >= len(p.FallbackQuestions) {
		round = len(p.FallbackQuestions) - 1
	}
	return p.FallbackQuestions[round]
}

package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPackIsValid(t *testing.T) {
	p := Default()
	assert.Equal(t, "The Great Gift Heist", p.Event.Name)
	assert.GreaterOrEqual(t, len(p.FallbackQuestions), 3)
	assert.NotEmpty(t, p.Answers.Help)
}

func TestFallbackQuestionClamps(t *testing.T) {
	p := &Pack{FallbackQuestions: []string{"one", "two"}}
	assert.Equal(t, "one", p.FallbackQuestion(-1))
	assert.Equal(t, "two", p.FallbackQuestion(1))
	assert.Equal(t, "two", p.FallbackQuestion(7))
}

func TestRender(t *testing.T) {
	p := &Pack{Event: Event{Name: "Heist", Date: "Friday", Venue: "Vault"}}
	got := p.Render("{event} on {date} at {venue}, agent {codename}", map[string]string{"codename": "Sly Fox"})
	assert.Equal(t, "Heist on Friday at Vault, agent Sly Fox", got)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("greeting: hi\nfallback_questions: [\"q1\"]\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hi", p.Greeting)

	require.NoError(t, os.WriteFile(path, []byte("greeting: hi\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

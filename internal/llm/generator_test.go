package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatgiftheist/agent-hq/internal/model"
)

type fakeClient struct {
	reply    string
	err      error
	requests []*CompletionRequest
}

func (f *fakeClient) Complete(_ context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResponse{Content: f.reply, Model: "fake-model", TokensIn: 10, TokensOut: 5}, nil
}

func (f *fakeClient) Name() string { return "fake" }

func TestNextQuestionAlternatesRoles(t *testing.T) {
	client := &fakeClient{reply: "  What gift would you steal first?\nExtra chatter"}
	g := NewGenerator(client, "m", 3, nil)

	now := time.Now()
	history := []model.MessageRecord{
		{Sender: model.SenderHQ, Text: "Welcome recruit. Name?", Timestamp: now},
		{Sender: model.SenderUser, Text: "Robin", Timestamp: now},
		{Sender: model.SenderHQ, Text: "Good to meet you.", Timestamp: now},
		{Sender: model.SenderHQ, Text: "First question?", Timestamp: now},
		{Sender: model.SenderUser, Text: "A sled", Timestamp: now},
	}

	q, err := g.NextQuestion(context.Background(), history, "Robin", 1)
	require.NoError(t, err)
	assert.Equal(t, "What gift would you steal first?", q)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "m", req.Model)
	assert.NotEmpty(t, req.System)
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	assert.Equal(t, RoleUser, req.Messages[len(req.Messages)-1].Role)
	for i := 1; i < len(req.Messages); i++ {
		assert.NotEqual(t, req.Messages[i-1].Role, req.Messages[i].Role)
	}
	assert.Contains(t, req.Messages[len(req.Messages)-1].Content, "question 2 of 3")
}

func TestGenerateCodenamePassesResponses(t *testing.T) {
	client := &fakeClient{reply: "Jolly Boots"}
	g := NewGenerator(client, "", 3, nil)

	name, err := g.GenerateCodename(context.Background(), "Robin", []string{"cocoa", "getaway driver"})
	require.NoError(t, err)
	assert.Equal(t, "Jolly Boots", name)
	prompt := client.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "cocoa")
	assert.Contains(t, prompt, "getaway driver")
}

func TestGeneratorWrapsErrors(t *testing.T) {
	boom := errors.New("503")
	g := NewGenerator(&fakeClient{err: boom}, "", 3, nil)

	_, err := g.GenerateCodename(context.Background(), "Robin", nil)
	assert.ErrorIs(t, err, boom)

	_, err = g.GiftIdeas(context.Background(), model.Profile{Codename: "Sly Comet"}, "ideas?")
	assert.ErrorIs(t, err, boom)
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient("bard", "key")
	assert.Error(t, err)

	_, err = NewClient(ProviderOpenAI, "")
	assert.Error(t, err)
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
	"github.com/greatgiftheist/agent-hq/pkg/metrics"
)

const systemPrompt = `You are HQ, mission control for "The Great Gift Heist", a holiday white elephant party run like a spy caper.
You speak in short, playful, in-character lines. Never break character and never use markdown.`

// Generator is the text-generation service behind onboarding: personality
// questions, codenames and gift advice.
type Generator struct {
	client Client
	model  string
	rounds int
	logger *logger.Logger
}

// NewGenerator wraps client. rounds is the number of personality questions
// asked per recruit and only shapes the prompt.
func NewGenerator(client Client, model string, rounds int, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Generator{client: client, model: model, rounds: rounds, logger: log}
}

// NextQuestion asks for personality question number round (zero-based),
// seeded with the conversation so far.
func (g *Generator) NextQuestion(ctx context.Context, history []model.MessageRecord, participantName string, round int) (string, error) {
	instruction := fmt.Sprintf(
		"Ask recruit %s personality question %d of %d. Keep it to one fun sentence about holidays, gifts or spy skills, "+
			"different from anything already asked. Reply with the question only.",
		participantName, round+1, g.rounds)

	messages := append(historyMessages(history), ChatMessage{Role: RoleUser, Content: instruction})
	out, err := g.complete(ctx, "question", &CompletionRequest{
		Model:       g.model,
		System:      systemPrompt,
		Messages:    mergeRoles(messages),
		MaxTokens:   120,
		Temperature: 0.9,
	})
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// GenerateCodename asks for a two-word codename derived from the recruit's
// answers.
func (g *Generator) GenerateCodename(ctx context.Context, participantName string, responses []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Recruit %s answered the personality interview:\n", participantName)
	for i, r := range responses {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	b.WriteString("Invent a festive two-word spy codename inspired by these answers, like \"Jolly Boots\" or \"Frosty Mittens\". ")
	b.WriteString("Do not use the recruit's real name. Reply with the codename only.")

	out, err := g.complete(ctx, "codename", &CompletionRequest{
		Model:       g.model,
		System:      systemPrompt,
		Messages:    []ChatMessage{{Role: RoleUser, Content: b.String()}},
		MaxTokens:   20,
		Temperature: 1.0,
	})
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// GiftIdeas answers a gift question for an agent.
func (g *Generator) GiftIdeas(ctx context.Context, profile model.Profile, question string) (string, error) {
	prompt := fmt.Sprintf(
		"Agent %s asks: %q\nSuggest three white elephant gift ideas around $25 in two or three sentences.",
		profile.Codename, question)

	return g.complete(ctx, "advice", &CompletionRequest{
		Model:       g.model,
		System:      systemPrompt,
		Messages:    []ChatMessage{{Role: RoleUser, Content: prompt}},
		MaxTokens:   200,
		Temperature: 0.8,
	})
}

func (g *Generator) complete(ctx context.Context, operation string, req *CompletionRequest) (string, error) {
	start := time.Now()
	resp, err := g.client.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordLLMCall(g.client.Name(), operation, "error", elapsed)
		g.logger.Warn("llm call failed",
			zap.String("provider", g.client.Name()), zap.String("operation", operation), zap.Error(err))
		return "", fmt.Errorf("%s %s: %w", g.client.Name(), operation, err)
	}

	metrics.RecordLLMCall(g.client.Name(), operation, "success", elapsed)
	metrics.RecordLLMTokens(resp.Model, resp.TokensIn, resp.TokensOut)
	return strings.TrimSpace(resp.Content), nil
}

// historyMessages maps transcript lines to chat turns. The opening user turn
// keeps providers that require a leading user message happy.
func historyMessages(history []model.MessageRecord) []ChatMessage {
	messages := []ChatMessage{{Role: RoleUser, Content: "A new recruit has connected to the HQ terminal."}}
	for _, rec := range history {
		role := RoleUser
		if rec.Sender == model.SenderHQ {
			role = RoleAssistant
		}
		messages = append(messages, ChatMessage{Role: role, Content: rec.Text})
	}
	return messages
}

// mergeRoles joins consecutive messages from the same role so turns
// alternate.
func mergeRoles(messages []ChatMessage) []ChatMessage {
	var out []ChatMessage
	for _, m := range messages {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

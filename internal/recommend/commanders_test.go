package recommend

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolarian/deckforge/internal/config"
	"github.com/tolarian/deckforge/internal/model"
	"github.com/tolarian/deckforge/pkg/anthropic"
)

// fakeAI returns a canned response and records the request.
type fakeAI struct {
	resp *anthropic.MessageResponse
	err  error
	req  anthropic.MessageRequest
}

func (f *fakeAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.req = req
	return f.resp, f.err
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func testConfig() config.AnthropicConfig {
	return config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 1024}
}

func TestSuggestCommanders(t *testing.T) {
	ai := &fakeAI{resp: textResponse(`{"suggestions": [
		{"name": "Krenko, Mob Boss", "colors": ["R"], "reason": "Goblin tokens at any budget."},
		{"name": "Rhys the Redeemed", "colors": ["W","G"], "reason": "Token doubling engine."}
	]}`)}
	s := NewSuggester(ai, testConfig())

	power := 2
	budget := 150.0
	record := model.ConsultationRecord{
		Strategy:   "tokens",
		PowerLevel: &power,
		Budget:     &budget,
	}

	got, err := s.SuggestCommanders(context.Background(), record)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Krenko, Mob Boss", got[0].Name)
	assert.Equal(t, []string{"W", "G"}, got[1].Colors)

	// The prompt carries the record's answers.
	assert.Contains(t, ai.req.Messages[0].Content, "tokens")
	assert.Contains(t, ai.req.Messages[0].Content, "2")
	assert.Contains(t, ai.req.Messages[0].Content, "150")
}

func TestSuggestCommanders_FencedJSON(t *testing.T) {
	ai := &fakeAI{resp: textResponse("Here you go:\n```json\n{\"suggestions\": [{\"name\": \"Atraxa, Praetors' Voice\"}]}\n```")}
	s := NewSuggester(ai, testConfig())

	got, err := s.SuggestCommanders(context.Background(), model.ConsultationRecord{Strategy: "counters"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Atraxa, Praetors' Voice", got[0].Name)
}

func TestSuggestCommanders_MalformedResponse(t *testing.T) {
	ai := &fakeAI{resp: textResponse("I recommend goblins!")}
	s := NewSuggester(ai, testConfig())

	got, err := s.SuggestCommanders(context.Background(), model.ConsultationRecord{})
	assert.NoError(t, err, "malformed output is best-effort, not an error")
	assert.Empty(t, got)
}

func TestSuggestCommanders_DropsUnnamedAndCapsAtFive(t *testing.T) {
	ai := &fakeAI{resp: textResponse(`{"suggestions": [
		{"name": ""},
		{"name": "A"}, {"name": "B"}, {"name": "C"},
		{"name": "D"}, {"name": "E"}, {"name": "F"}
	]}`)}
	s := NewSuggester(ai, testConfig())

	got, err := s.SuggestCommanders(context.Background(), model.ConsultationRecord{})
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "E", got[4].Name)
}

func TestSuggestCommanders_TransportError(t *testing.T) {
	ai := &fakeAI{err: eris.New("boom")}
	s := NewSuggester(ai, testConfig())

	_, err := s.SuggestCommanders(context.Background(), model.ConsultationRecord{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recommend: suggest commanders")
}

func TestBuildUserPromptDefaults(t *testing.T) {
	prompt := buildUserPrompt(model.ConsultationRecord{})
	assert.Contains(t, prompt, "unspecified")
	assert.Contains(t, prompt, "none")
}

// Package recommend produces commander suggestions for consultations that
// ask for them.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tolarian/deckforge/internal/config"
	"github.com/tolarian/deckforge/internal/model"
	"github.com/tolarian/deckforge/pkg/anthropic"
)

const suggestSystemPrompt = `You are a Magic: The Gathering Commander format expert. Suggest legendary creatures that fit the player's stated preferences. Respond with a valid JSON object: {"suggestions": [{"name": "<card name>", "colors": ["W","U","B","R","G"], "reason": "<one sentence>"}]}. Suggest at most 5 commanders. Only real, Commander-legal cards.`

const suggestUserPrompt = `Strategy: %s
Power level (1-4): %s
Budget (USD): %s
Primary win condition: %s
Avoid strategies: %s`

// CommanderSuggestion is one ranked commander candidate.
type CommanderSuggestion struct {
	Name   string   `json:"name"`
	Colors []string `json:"colors,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// Suggester asks Claude for commanders matching a partial consultation
// record.
type Suggester struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
}

// NewSuggester creates a Suggester over the given Anthropic client.
func NewSuggester(client anthropic.Client, cfg config.AnthropicConfig) *Suggester {
	return &Suggester{client: client, cfg: cfg}
}

// SuggestCommanders returns up to five commanders for the record's
// strategy, power and budget answers. A malformed model response yields an
// empty list, not an error; the wizard treats suggestions as best-effort.
func (s *Suggester) SuggestCommanders(ctx context.Context, record model.ConsultationRecord) ([]CommanderSuggestion, error) {
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.cfg.Model,
		MaxTokens: int64(s.cfg.MaxTokens),
		System:    suggestSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserPrompt(record)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "recommend: suggest commanders")
	}
	resp.Usage.LogUsage(s.cfg.Model, "suggest_commanders")

	suggestions := parseSuggestions(resp.Text())
	if len(suggestions) == 0 {
		zap.L().Warn("recommend: no usable suggestions in model response")
	}
	return suggestions, nil
}

func buildUserPrompt(record model.ConsultationRecord) string {
	power := "unspecified"
	if record.PowerLevel != nil {
		power = fmt.Sprintf("%d", *record.PowerLevel)
	}
	budget := "unspecified"
	if record.Budget != nil {
		budget = fmt.Sprintf("%.0f", *record.Budget)
	}
	strategy := record.Strategy
	if strategy == "" {
		strategy = "unspecified"
	}
	primaryWin := "unspecified"
	if record.WinConditions != nil && record.WinConditions.Primary != "" {
		primaryWin = string(record.WinConditions.Primary)
	}
	avoid := "none"
	if record.Restrictions != nil && len(record.Restrictions.AvoidStrategies) > 0 {
		avoid = strings.Join(record.Restrictions.AvoidStrategies, ", ")
	}
	return fmt.Sprintf(suggestUserPrompt, strategy, power, budget, primaryWin, avoid)
}

func parseSuggestions(text string) []CommanderSuggestion {
	text = cleanJSON(text)

	var result struct {
		Suggestions []CommanderSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil
	}

	// Drop entries without a name; cap at five.
	var out []CommanderSuggestion
	for _, sug := range result.Suggestions {
		if strings.TrimSpace(sug.Name) == "" {
			continue
		}
		out = append(out, sug)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// cleanJSON strips markdown code fences and surrounding prose so the
// payload parses even when the model decorates its answer.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

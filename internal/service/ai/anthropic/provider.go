// Package anthropic implements the suggestion provider on Claude models via
// the official Anthropic SDK.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"docasst/internal/service/ai"
)

const defaultMaxTokens = 4096

// Provider implements ai.Provider for Anthropic (Claude) models.
type Provider struct {
	client *anthropic.Client
	model  string
}

// NewProvider creates a new Anthropic provider with the given API key and
// model id.
func NewProvider(apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{
		client: &client,
		model:  model,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// Suggest asks Claude for edit suggestions and parses the JSON edit array
// out of the response.
func (p *Provider) Suggest(ctx context.Context, req ai.SuggestRequest) ([]ai.ProposedEdit, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: ai.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(ai.BuildPrompt(req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}

	edits, err := parseEdits(text.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse suggestions: %w", err)
	}
	return edits, nil
}

// parseEdits extracts the JSON edit array from the model's text. Models
// occasionally wrap the array in code fences or prose despite instructions,
// so parsing starts at the first '[' and ends at the last ']'.
func parseEdits(text string) ([]ai.ProposedEdit, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var edits []ai.ProposedEdit
	if err := json.Unmarshal([]byte(text[start:end+1]), &edits); err != nil {
		return nil, err
	}
	return edits, nil
}

// Package ai generates AI edit suggestions for a document. Providers turn a
// block snapshot plus an instruction into proposed per-block replacements;
// the suggester orchestrates requests with later-wins supersede semantics.
package ai

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docasst/internal/config"
	"docasst/internal/domain/models/doc"
)

// SuggestRequest asks a provider for edit suggestions against a snapshot of
// the document's blocks.
type SuggestRequest struct {
	DocumentID  string
	Instruction string
	Blocks      []*doc.Block
}

// Validate validates the request.
func (r SuggestRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.Instruction,
			validation.Required,
			validation.Length(1, config.MaxSuggestionInstructionLength),
		),
		validation.Field(&r.Blocks, validation.Required),
	)
}

// ProposedEdit is one model-proposed replacement: the original text locates
// the span inside the block, the proposed text replaces it.
type ProposedEdit struct {
	BlockID      string `json:"block_id"`
	OriginalText string `json:"original_text"`
	ProposedText string `json:"proposed_text"`
	Reason       string `json:"reason,omitempty"`
}

// Provider generates edit suggestions.
//
// Supported providers:
//   - "anthropic" - Claude models via the Anthropic API
type Provider interface {
	Name() string
	Suggest(ctx context.Context, req SuggestRequest) ([]ProposedEdit, error)
}

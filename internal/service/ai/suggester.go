package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docasst/internal/domain"
)

// Suggester runs suggestion requests against a provider with later-wins
// semantics per document: issuing a new request supersedes any in-flight one
// for the same document. The stale call is not cancelled - providers bill
// for it either way - but its result is discarded so it can never be applied
// over the newer batch.
type Suggester struct {
	provider Provider
	logger   *slog.Logger

	mu         sync.Mutex
	generation map[string]uint64
}

// NewSuggester creates a suggester on top of a provider.
func NewSuggester(provider Provider, logger *slog.Logger) *Suggester {
	return &Suggester{
		provider:   provider,
		logger:     logger,
		generation: make(map[string]uint64),
	}
}

// Suggest validates the request, calls the provider, and returns the
// proposed edits. A request superseded while in flight returns
// domain.ErrSuperseded. Edits referencing blocks that are not in the
// snapshot, or with empty text fields, are dropped with a warning.
func (s *Suggester) Suggest(ctx context.Context, req SuggestRequest) ([]ProposedEdit, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	gen := s.bump(req.DocumentID)
	s.logger.Info("requesting suggestions",
		"document_id", req.DocumentID,
		"provider", s.provider.Name(),
		"blocks", len(req.Blocks),
	)

	edits, err := s.provider.Suggest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("suggestion provider %s: %w", s.provider.Name(), err)
	}
	if !s.current(req.DocumentID, gen) {
		s.logger.Info("discarding superseded suggestion batch",
			"document_id", req.DocumentID,
			"edits", len(edits),
		)
		return nil, domain.ErrSuperseded
	}

	known := blockIDs(req.Blocks)
	kept := make([]ProposedEdit, 0, len(edits))
	for _, edit := range edits {
		if edit.OriginalText == "" || edit.ProposedText == "" {
			s.logger.Warn("dropping suggestion with empty text", "block_id", edit.BlockID)
			continue
		}
		if _, ok := known[edit.BlockID]; !ok {
			s.logger.Warn("dropping suggestion for unknown block", "block_id", edit.BlockID)
			continue
		}
		kept = append(kept, edit)
	}

	s.logger.Info("suggestions received",
		"document_id", req.DocumentID,
		"proposed", len(edits),
		"kept", len(kept),
	)
	return kept, nil
}

func (s *Suggester) bump(documentID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation[documentID]++
	return s.generation[documentID]
}

func (s *Suggester) current(documentID string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation[documentID] == gen
}

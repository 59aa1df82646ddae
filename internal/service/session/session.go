// Package session hosts the server-side editing sessions. A session owns one
// document's live tree and the engines around it - synchronization,
// annotations, the debounced exporter - and serializes all access behind its
// lock, honoring the single-mutator transaction model.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"docasst/internal/blockkind"
	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/domain/repositories"
	"docasst/internal/livetree"
	"docasst/internal/service/ai"
	"docasst/internal/service/annotation"
	"docasst/internal/service/docsync"
	"docasst/internal/service/selection"
)

// SelectionRef is a selection as the wire protocol describes it: the spanned
// top-level block ids and, for single-block selections, rune offsets into
// the block's flattened text.
type SelectionRef struct {
	BlockIDs    []string `json:"block_ids"`
	StartOffset *int     `json:"start_offset,omitempty"`
	EndOffset   *int     `json:"end_offset,omitempty"`
}

// Session is one open document.
type Session struct {
	mu sync.Mutex

	documentID string
	title      string
	version    int

	tree        *livetree.Tree
	kinds       *blockkind.Registry
	sync        *docsync.Engine
	annotations *annotation.Engine
	exporter    *docsync.Exporter
	suggester   *ai.Suggester

	docs        repositories.DocumentRepository
	comments    repositories.CommentRepository
	suggestions repositories.SuggestionRepository
	tx          repositories.TransactionManager

	logger      *slog.Logger
	unsubscribe func()
}

// State exports the current document snapshot.
func (s *Session) State() *doc.DocState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.Export(s.tree, s.documentID, s.title, s.version)
}

// UpdateBlocks replaces the document's content with a user-submitted block
// tree and persists the result. The import runs as a direct transaction so
// the change tracker attributes per-block diffs to the user.
func (s *Session) UpdateBlocks(ctx context.Context, title string, blocks []*doc.Block) (*doc.DocState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Malformed blocks must not reach the tree: a duplicate id would bind
	// anchors and lookups to the wrong block from then on.
	if err := s.kinds.ValidateBlocks(blocks); err != nil {
		return nil, err
	}

	if title != "" {
		s.title = title
	}
	incoming := &doc.DocState{
		ID:     s.documentID,
		Title:  s.title,
		Blocks: blocks,
	}
	s.sync.ImportAs(s.tree, incoming, livetree.OriginDirect)
	return s.saveLocked(ctx)
}

// Save flushes any pending export and persists the snapshot.
func (s *Session) Save(ctx context.Context) (*doc.DocState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) (*doc.DocState, error) {
	state := s.exporter.Snapshot()
	if err := s.docs.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save document %s: %w", s.documentID, err)
	}
	s.version = state.Version
	s.exporter.SetMeta(s.documentID, s.title, s.version)
	s.logger.Info("document saved",
		"document_id", s.documentID,
		"version", s.version,
	)
	return state, nil
}

// TurnInto converts a block to another kind, preserving its id and content
// per the conversion rules.
func (s *Session) TurnInto(ctx context.Context, blockID string, kind doc.BlockKind, level int) (*doc.DocState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.tree.FindContainer(blockID)
	if target == nil {
		return nil, fmt.Errorf("block %s: %w", blockID, domain.ErrNotFound)
	}
	if err := s.sync.TurnInto(s.tree, target, kind, level); err != nil {
		return nil, err
	}
	return s.saveLocked(ctx)
}

// ClassifySelection reports the scope an AI request should read from the
// given selection.
func (s *Session) ClassifySelection(ref SelectionRef) (selection.Classification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.selectionInfo(ref)
	if err != nil {
		return selection.Classification{Scope: selection.ScopeNone}, err
	}
	return selection.Classify(info), nil
}

// selectionInfo materializes a wire selection against the live tree.
func (s *Session) selectionInfo(ref SelectionRef) (livetree.Info, error) {
	if len(ref.BlockIDs) == 0 {
		return livetree.Info{}, nil
	}

	if len(ref.BlockIDs) == 1 {
		container := s.tree.FindContainer(ref.BlockIDs[0])
		if container == nil {
			return livetree.Info{}, fmt.Errorf("block %s: %w", ref.BlockIDs[0], domain.ErrNotFound)
		}
		flat := livetree.FlattenText(container)
		start, end := 0, utf8.RuneCountInString(flat)
		if ref.StartOffset != nil {
			start = *ref.StartOffset
		}
		if ref.EndOffset != nil {
			end = *ref.EndOffset
		}
		text := sliceRunes(flat, start, end)
		if text == "" {
			return livetree.Info{}, nil
		}
		return livetree.Info{
			BlockIDs:    []string{ref.BlockIDs[0]},
			Text:        text,
			StartOffset: &start,
			EndOffset:   &end,
		}, nil
	}

	var parts []string
	for _, id := range ref.BlockIDs {
		container := s.tree.FindContainer(id)
		if container == nil {
			return livetree.Info{}, fmt.Errorf("block %s: %w", id, domain.ErrNotFound)
		}
		parts = append(parts, livetree.FlattenText(container))
	}
	return livetree.Info{
		BlockIDs: append([]string(nil), ref.BlockIDs...),
		Text:     strings.Join(parts, "\n"),
	}, nil
}

// Close stops the exporter and releases subscriptions without saving.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exporter.Stop()
	s.annotations.Close()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func sliceRunes(s string, start, end int) string {
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

package session

import (
	"context"
	"fmt"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
	"docasst/internal/service/ai"
	"docasst/internal/service/annotation"
	"docasst/internal/service/selection"
	"docasst/internal/service/spanres"
)

// Comments returns the document's comment threads.
func (s *Session) Comments() []*doc.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.annotations.Comments()
}

// CreateComment creates a comment against a selection and persists it.
func (s *Session) CreateComment(ctx context.Context, ref SelectionRef, req annotation.CreateCommentRequest) (*doc.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.selectionInfo(ref)
	if err != nil {
		return nil, err
	}
	comment, err := s.annotations.CreateComment(info, req)
	if err != nil {
		return nil, err
	}
	if err := s.comments.Create(ctx, s.documentID, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ReplyComment appends a reply to a thread and persists it.
func (s *Session) ReplyComment(ctx context.Context, parentID string, req annotation.CreateCommentRequest) (*doc.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.annotations.Reply(parentID, req)
	if err != nil {
		return nil, err
	}
	if err := s.comments.CreateReply(ctx, s.documentID, parentID, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// ResolveComment marks a comment resolved and persists the flag.
func (s *Session) ResolveComment(ctx context.Context, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.annotations.ResolveComment(commentID); err != nil {
		return err
	}
	return s.comments.SetResolved(ctx, commentID, true)
}

// DeleteComment removes a comment from the session and the store.
func (s *Session) DeleteComment(ctx context.Context, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.annotations.DeleteComment(commentID); err != nil {
		return err
	}
	return s.comments.Delete(ctx, commentID)
}

// Suggestions returns the document's suggestions.
func (s *Session) Suggestions() []*doc.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.annotations.Suggestions()
}

// RequestSuggestions asks the AI provider for edits against the selection's
// scope and registers each returned edit as a suggestion. A nil or empty
// selection reads the whole document; a text-scope selection narrows the
// request to its single block; a blocks-scope selection to the spanned
// blocks. The provider call runs without the session lock - it is slow, and
// editing must not stall behind it. A request superseded by a newer one
// returns domain.ErrSuperseded and registers nothing.
func (s *Session) RequestSuggestions(ctx context.Context, ref SelectionRef, instruction string) ([]*doc.Suggestion, error) {
	s.mu.Lock()
	s.exporter.Flush()
	info, err := s.selectionInfo(ref)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	blocks := s.scopedBlocks(info)
	s.mu.Unlock()

	edits, err := s.suggester.Suggest(ctx, ai.SuggestRequest{
		DocumentID:  s.documentID,
		Instruction: instruction,
		Blocks:      blocks,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created []*doc.Suggestion
	for _, edit := range edits {
		sugg, err := s.annotations.AddSuggestion(annotation.ProposedEdit{
			BlockID:      edit.BlockID,
			OriginalText: edit.OriginalText,
			ProposedText: edit.ProposedText,
			Reason:       edit.Reason,
		})
		if err != nil {
			s.logger.Warn("skipping unusable suggestion",
				"block_id", edit.BlockID,
				"error", err,
			)
			continue
		}
		if err := s.suggestions.Create(ctx, s.documentID, sugg); err != nil {
			return nil, err
		}
		created = append(created, sugg)
	}
	return created, nil
}

// scopedBlocks narrows the block snapshot to the selection's scope: the
// whole document for no selection, the spanned blocks otherwise.
func (s *Session) scopedBlocks(info livetree.Info) []*doc.Block {
	snapshot := s.sync.ExportBlocks(s.tree)
	if selection.Classify(info).Scope == selection.ScopeNone {
		return snapshot
	}

	want := make(map[string]struct{}, len(info.BlockIDs))
	for _, id := range info.BlockIDs {
		want[id] = struct{}{}
	}
	var scoped []*doc.Block
	for _, b := range snapshot {
		if _, ok := want[b.ID]; ok {
			scoped = append(scoped, b)
		}
	}
	if len(scoped) == 0 {
		return snapshot
	}
	return scoped
}

// AcceptSuggestion applies a suggestion, persists its status, and saves the
// changed document. The status update and the document save commit in one
// database transaction: a stored "applied" status whose text never landed
// would be unrecoverable from the audit log alone.
func (s *Session) AcceptSuggestion(ctx context.Context, suggestionID, actor string) (*doc.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sugg, err := s.annotations.Accept(suggestionID, actor)
	if err != nil {
		return nil, err
	}
	err = s.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.suggestions.SetStatus(txCtx, suggestionID, sugg.Status); err != nil {
			return err
		}
		_, err := s.saveLocked(txCtx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sugg, nil
}

// RejectSuggestion rejects a suggestion and persists its status. The text is
// untouched, so no save is forced; the recolored runs reach the store on the
// next debounced export.
func (s *Session) RejectSuggestion(ctx context.Context, suggestionID, actor string) (*doc.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sugg, err := s.annotations.Reject(suggestionID, actor)
	if err != nil {
		return nil, err
	}
	if err := s.suggestions.SetStatus(ctx, suggestionID, sugg.Status); err != nil {
		return nil, err
	}
	return sugg, nil
}

// ChangeLog returns one block's audit records, oldest first.
func (s *Session) ChangeLog(blockID string) []doc.ChangeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.annotations.ChangeLog(blockID)
}

// AllChangeRecords returns the document's audit records, oldest first.
func (s *Session) AllChangeRecords() []doc.ChangeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.annotations.AllRecords()
}

// MarkVerified records a human sign-off on a block's current content.
func (s *Session) MarkVerified(blockID, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.annotations.MarkVerified(blockID, actor)
}

// CommentHighlights resolves a comment's anchor for rendering.
func (s *Session) CommentHighlights(commentID string) ([]*spanres.ResolvedSpan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.annotations.Comments() {
		if c.ID == commentID {
			return s.annotations.Highlights(c.Anchor, c.ID), nil
		}
	}
	return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
}

// SuggestionHighlights resolves a suggestion's anchor for rendering.
func (s *Session) SuggestionHighlights(suggestionID string) ([]*spanres.ResolvedSpan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sg := range s.annotations.Suggestions() {
		if sg.ID == suggestionID {
			return s.annotations.Highlights(sg.Anchor, sg.ID), nil
		}
	}
	return nil, fmt.Errorf("suggestion %s: %w", suggestionID, domain.ErrNotFound)
}

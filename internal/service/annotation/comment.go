package annotation

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docasst/internal/config"
	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
)

// CreateCommentRequest carries a new comment's inputs.
type CreateCommentRequest struct {
	Body   string `json:"body"`
	Author string `json:"author"`
}

// Validate validates the request.
func (r CreateCommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Body,
			validation.Required,
			validation.Length(1, config.MaxCommentBodyLength),
		),
		validation.Field(&r.Author, validation.Required),
	)
}

// CreateComment creates a comment against the current live selection.
// The anchor captures the spanned block ids, the selected text, and - for
// single-block selections, where they exist - the rune offsets. Offsets are
// captured now or never; they are not recomputed later. The comment id is
// attached to the runs the exact original selection covers: creation has
// the live selection in hand, so no fuzzy resolution is involved.
func (e *Engine) CreateComment(info livetree.Info, req CreateCommentRequest) (*doc.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if info.Empty() {
		return nil, fmt.Errorf("%w: comments require a non-empty selection", domain.ErrEmptySelection)
	}

	anchor := doc.Anchor{
		BlockID:      info.BlockIDs[0],
		SnapshotText: info.Text,
		StartOffset:  info.StartOffset,
		EndOffset:    info.EndOffset,
	}
	if len(info.BlockIDs) > 1 {
		anchor.BlockIDs = append([]string(nil), info.BlockIDs...)
	}

	comment := &doc.Comment{
		ID:        e.newID(),
		Anchor:    anchor,
		Body:      req.Body,
		Author:    req.Author,
		Timestamp: e.now(),
	}

	err := e.tree.Update(livetree.OriginProgrammatic, func() error {
		e.attachCommentID(comment.ID, info)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.comments = append(e.comments, comment)
	e.commentByID[comment.ID] = comment
	e.logger.Info("comment created",
		"comment_id", comment.ID,
		"block_id", anchor.BlockID,
		"blocks", len(info.BlockIDs),
	)
	e.notifyComment(comment)
	return comment, nil
}

// attachCommentID tags every text node the original selection covers.
// Single-block selections use the exact offsets; multi-block selections tag
// each spanned block wholly, matching the degraded precision those anchors
// resolve with later.
func (e *Engine) attachCommentID(id string, info livetree.Info) {
	if len(info.BlockIDs) == 1 && info.StartOffset != nil && info.EndOffset != nil {
		container := e.tree.FindContainer(info.BlockIDs[0])
		if container == nil {
			return
		}
		for _, n := range livetree.TextNodesInRange(container, *info.StartOffset, *info.EndOffset) {
			n.AddCommentID(id)
		}
		return
	}
	for _, blockID := range info.BlockIDs {
		container := e.tree.FindContainer(blockID)
		if container == nil {
			continue
		}
		for _, n := range livetree.TextNodes(container) {
			n.AddCommentID(id)
		}
	}
}

// Reply appends a reply to a comment thread. Replies carry no anchors of
// their own; they inherit the parent's.
func (e *Engine) Reply(commentID string, req CreateCommentRequest) (*doc.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	parent, ok := e.commentByID[commentID]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}

	reply := &doc.Comment{
		ID:        e.newID(),
		Anchor:    parent.Anchor,
		Body:      req.Body,
		Author:    req.Author,
		Timestamp: e.now(),
	}
	parent.Replies = append(parent.Replies, reply)
	e.notifyComment(parent)
	return reply, nil
}

// ResolveComment marks a comment resolved. The comment stays in the list;
// the active view hides it.
func (e *Engine) ResolveComment(commentID string) error {
	comment, ok := e.commentByID[commentID]
	if !ok {
		return fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	comment.Resolved = true
	e.logger.Info("comment resolved", "comment_id", commentID)
	e.notifyComment(comment)
	return nil
}

// DeleteComment removes a comment and strips its id from the runs it
// currently highlights, re-found through the span resolver. A failed
// resolution never blocks deletion: the comment leaves the list either way,
// at worst leaving inert ids behind on runs.
func (e *Engine) DeleteComment(commentID string) error {
	comment, ok := e.commentByID[commentID]
	if !ok {
		return fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}

	spans, err := e.resolver.ResolveAll(comment.Anchor, e.sync.SnapshotBlocks(e.tree))
	if err != nil && !errors.Is(err, domain.ErrAnchorNotFound) {
		return err
	}
	if err == nil {
		_ = e.tree.Update(livetree.OriginProgrammatic, func() error {
			for _, span := range spans {
				container := e.tree.FindContainer(span.BlockID)
				if container == nil {
					continue
				}
				for _, n := range livetree.TextNodesInRange(container, span.Start, span.End) {
					n.RemoveCommentID(commentID)
				}
			}
			return nil
		})
	} else {
		e.logger.Warn("deleting comment without resolvable highlight", "comment_id", commentID)
	}

	delete(e.commentByID, commentID)
	for i, c := range e.comments {
		if c.ID == commentID {
			e.comments = append(e.comments[:i], e.comments[i+1:]...)
			break
		}
	}
	e.logger.Info("comment deleted", "comment_id", commentID)
	return nil
}

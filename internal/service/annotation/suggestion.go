package annotation

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
	"docasst/internal/service/spanres"
)

// ProposedEdit is one AI-proposed replacement for a block's span, as
// returned by a suggestion provider.
type ProposedEdit struct {
	BlockID      string `json:"block_id"`
	OriginalText string `json:"original_text"`
	ProposedText string `json:"proposed_text"`
	Reason       string `json:"reason,omitempty"`
}

// Validate validates the edit.
func (p ProposedEdit) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.BlockID, validation.Required),
		validation.Field(&p.OriginalText, validation.Required),
		validation.Field(&p.ProposedText, validation.Required),
	)
}

// AddSuggestion records an AI-proposed edit as a suggestion in the
// suggested state - the only creation state - recolors the anchored runs,
// and appends an ai_suggested audit record. The anchor snapshots the
// original text now; resolution happens again on accept, against whatever
// the document looks like then.
func (e *Engine) AddSuggestion(edit ProposedEdit) (*doc.Suggestion, error) {
	if err := edit.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	sugg := &doc.Suggestion{
		ID: e.newID(),
		Anchor: doc.Anchor{
			BlockID:      edit.BlockID,
			SnapshotText: edit.OriginalText,
		},
		OriginalText: edit.OriginalText,
		ProposedText: edit.ProposedText,
		Reason:       edit.Reason,
		Status:       doc.SuggestionSuggested,
		CreatedAt:    e.now(),
	}

	// Recolor the anchored runs; an unresolvable anchor is not an error,
	// the suggestion just renders without a highlight.
	if span, err := e.resolver.Resolve(sugg.Anchor, e.sync.SnapshotBlocks(e.tree)); err == nil {
		_ = e.tree.Update(livetree.OriginProgrammatic, func() error {
			e.recolorSpan(span, doc.AIStatusSuggested)
			return nil
		})
	}

	e.suggestions = append(e.suggestions, sugg)
	e.suggByID[sugg.ID] = sugg
	e.appendRecord(doc.ChangeRecord{
		BlockID:      edit.BlockID,
		Kind:         doc.ChangeAISuggested,
		OriginalText: edit.OriginalText,
		ModifiedText: edit.ProposedText,
		Reason:       edit.Reason,
		Actor:        "assistant",
	})
	e.logger.Info("suggestion added",
		"suggestion_id", sugg.ID,
		"block_id", edit.BlockID,
	)
	e.notifySuggestion(sugg)
	return sugg, nil
}

// Accept applies a suggested edit: the anchored span's text becomes the
// proposed text and the run is marked applied. When resolution spans
// several runs, the first is replaced with the full proposed text (keeping
// its own formatting) and subsequent overlapping runs are removed -
// character-level multi-run splicing is not attempted; this is a documented
// limitation of the accept path, not a bug. Exactly one ai_applied audit
// record is appended.
func (e *Engine) Accept(suggestionID, actor string) (*doc.Suggestion, error) {
	sugg, ok := e.suggByID[suggestionID]
	if !ok {
		return nil, fmt.Errorf("suggestion %s: %w", suggestionID, domain.ErrNotFound)
	}
	if sugg.Status != doc.SuggestionSuggested {
		return nil, fmt.Errorf("suggestion %s is already %s: %w", suggestionID, sugg.Status, domain.ErrConflict)
	}

	span, err := e.resolver.Resolve(sugg.Anchor, e.sync.SnapshotBlocks(e.tree))
	if err != nil {
		return nil, fmt.Errorf("accept suggestion %s: %w", suggestionID, err)
	}

	container := e.tree.FindContainer(span.BlockID)
	if container == nil {
		return nil, fmt.Errorf("accept suggestion %s: %w", suggestionID, domain.ErrAnchorNotFound)
	}

	err = e.tree.Update(livetree.OriginProgrammatic, func() error {
		nodes := livetree.TextNodes(container)
		first := true
		var emptied []*livetree.Node
		for _, rr := range span.RunRanges {
			if rr.RunIndex >= len(nodes) {
				continue
			}
			node := nodes[rr.RunIndex]
			if first {
				first = false
				run := node.Run()
				run.Text = sugg.ProposedText
				run.AIStatus = doc.AIStatusApplied
				run.UserEdited = false
				node.SetRun(run)
				continue
			}
			parent := node.Parent()
			if parent != nil {
				parent.RemoveChild(node)
				emptied = append(emptied, parent)
			}
		}
		// Removing overlapping runs must not leave a text-bearing
		// container childless.
		for _, parent := range emptied {
			if parent.ChildCount() == 0 && e.kinds.IsText(parent.Kind()) {
				parent.AppendChild(livetree.NewText(doc.TextRun{}))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sugg.Status = doc.SuggestionApplied
	e.appendRecord(doc.ChangeRecord{
		BlockID:      span.BlockID,
		Kind:         doc.ChangeAIApplied,
		OriginalText: sugg.OriginalText,
		ModifiedText: sugg.ProposedText,
		Reason:       sugg.Reason,
		Actor:        actor,
	})
	e.logger.Info("suggestion applied",
		"suggestion_id", suggestionID,
		"block_id", span.BlockID,
		"path", span.Path,
	)
	e.notifySuggestion(sugg)
	return sugg, nil
}

// Reject marks a suggested edit rejected. The block's text stays
// byte-identical; only the run coloring changes. Exactly one rejected
// audit record is appended. An unresolvable anchor still rejects - there
// is simply nothing to recolor.
func (e *Engine) Reject(suggestionID, actor string) (*doc.Suggestion, error) {
	sugg, ok := e.suggByID[suggestionID]
	if !ok {
		return nil, fmt.Errorf("suggestion %s: %w", suggestionID, domain.ErrNotFound)
	}
	if sugg.Status != doc.SuggestionSuggested {
		return nil, fmt.Errorf("suggestion %s is already %s: %w", suggestionID, sugg.Status, domain.ErrConflict)
	}

	span, err := e.resolver.Resolve(sugg.Anchor, e.sync.SnapshotBlocks(e.tree))
	switch {
	case err == nil:
		_ = e.tree.Update(livetree.OriginProgrammatic, func() error {
			e.recolorSpan(span, doc.AIStatusRejected)
			return nil
		})
	case errors.Is(err, domain.ErrAnchorNotFound):
		e.logger.Warn("rejecting suggestion without resolvable highlight", "suggestion_id", suggestionID)
	default:
		return nil, err
	}

	sugg.Status = doc.SuggestionRejected
	e.appendRecord(doc.ChangeRecord{
		BlockID:      sugg.Anchor.BlockID,
		Kind:         doc.ChangeRejected,
		OriginalText: sugg.OriginalText,
		ModifiedText: sugg.OriginalText,
		Reason:       sugg.Reason,
		Actor:        actor,
	})
	e.logger.Info("suggestion rejected", "suggestion_id", suggestionID)
	e.notifySuggestion(sugg)
	return sugg, nil
}

// recolorSpan sets the AI status on every run a resolved span covers.
func (e *Engine) recolorSpan(span *spanres.ResolvedSpan, status doc.AIStatus) {
	container := e.tree.FindContainer(span.BlockID)
	if container == nil {
		return
	}
	nodes := livetree.TextNodes(container)
	for _, rr := range span.RunRanges {
		if rr.RunIndex < len(nodes) {
			nodes[rr.RunIndex].SetAIStatus(status)
		}
	}
}

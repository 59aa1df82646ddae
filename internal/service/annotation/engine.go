// Package annotation manages comment threads, the AI-suggestion state
// machine, and the per-block append-only audit log. It sits on top of the
// span resolver: annotations are created against the exact live selection,
// and re-located later through graduated fallback when the document has
// moved on underneath them.
package annotation

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docasst/internal/blockkind"
	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
	"docasst/internal/service/docsync"
	"docasst/internal/service/spanres"
)

// Hooks are the engine's outbound wiring, injected at construction instead
// of registered on ambient global state. All hooks are optional and
// fire-and-forget: a hook that persists remotely must not block editing,
// and its failure never rolls back local state.
type Hooks struct {
	CommentChanged    func(*doc.Comment)
	SuggestionChanged func(*doc.Suggestion)
	RecordLogged      func(doc.ChangeRecord)
}

// Engine is the annotation lifecycle engine for one open document.
// It assumes the single-mutator transaction model of the live tree: callers
// serialize access (the editing session holds its lock across operations),
// so the engine carries no locking of its own.
type Engine struct {
	tree     *livetree.Tree
	sync     *docsync.Engine
	resolver *spanres.Resolver
	kinds    *blockkind.Registry
	hooks    Hooks
	logger   *slog.Logger

	now   func() time.Time
	newID func() string

	comments    []*doc.Comment
	commentByID map[string]*doc.Comment
	suggestions []*doc.Suggestion
	suggByID    map[string]*doc.Suggestion
	changeLog   map[string][]doc.ChangeRecord

	// baseline run texts per block, for attributing direct edits
	baseline map[string][]string
	// anchors already reported unresolved, so each is logged once
	unresolvedLogged map[string]struct{}

	unsubscribe func()
}

// NewEngine creates an annotation engine bound to a live tree. It
// subscribes to the tree's committed transactions for track-changes
// attribution; Close releases the subscription.
func NewEngine(
	tree *livetree.Tree,
	syncEngine *docsync.Engine,
	resolver *spanres.Resolver,
	kinds *blockkind.Registry,
	hooks Hooks,
	logger *slog.Logger,
) *Engine {
	e := &Engine{
		tree:             tree,
		sync:             syncEngine,
		resolver:         resolver,
		kinds:            kinds,
		hooks:            hooks,
		logger:           logger,
		now:              time.Now,
		newID:            uuid.NewString,
		commentByID:      make(map[string]*doc.Comment),
		suggByID:         make(map[string]*doc.Suggestion),
		changeLog:        make(map[string][]doc.ChangeRecord),
		baseline:         make(map[string][]string),
		unresolvedLogged: make(map[string]struct{}),
	}
	e.resetBaseline()
	e.unsubscribe = tree.Subscribe(e.onTransaction)
	return e
}

// Close releases the engine's tree subscription.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// Comments returns all comments in creation order, resolved ones included;
// resolution only hides a comment from the active view.
func (e *Engine) Comments() []*doc.Comment {
	return append([]*doc.Comment(nil), e.comments...)
}

// Suggestions returns all suggestions in creation order.
func (e *Engine) Suggestions() []*doc.Suggestion {
	return append([]*doc.Suggestion(nil), e.suggestions...)
}

// Highlights resolves an annotation's anchor against the current tree for
// rendering. An unresolvable anchor yields no spans and is reported once;
// the annotation itself stays listed.
func (e *Engine) Highlights(anchor doc.Anchor, annotationID string) []*spanres.ResolvedSpan {
	spans, err := e.resolver.ResolveAll(anchor, e.sync.SnapshotBlocks(e.tree))
	if err != nil {
		if _, seen := e.unresolvedLogged[annotationID]; !seen {
			e.unresolvedLogged[annotationID] = struct{}{}
			e.logger.Warn("annotation anchor unresolved, rendering without highlight",
				"annotation_id", annotationID,
				"block_id", anchor.BlockID,
			)
		}
		return nil
	}
	return spans
}

// notifyComment fires the comment hook if present.
func (e *Engine) notifyComment(c *doc.Comment) {
	if e.hooks.CommentChanged != nil {
		e.hooks.CommentChanged(c)
	}
}

// notifySuggestion fires the suggestion hook if present.
func (e *Engine) notifySuggestion(s *doc.Suggestion) {
	if e.hooks.SuggestionChanged != nil {
		e.hooks.SuggestionChanged(s)
	}
}

package docsync

import (
	"sort"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
)

// Import replaces the tree's content with the given state, in one
// transaction. Any text-bearing block with zero runs gets a synthesized
// empty text run: the live tree's invariant is that every text-bearing
// block has at least one child.
//
// The returned IntegrityMismatch lists block ids lost or invented by the
// round trip. Both are signals of a lossy load that must be investigated,
// but neither aborts it - the report is a warning, never a failure.
func (e *Engine) Import(t *livetree.Tree, state *doc.DocState) *domain.IntegrityMismatch {
	return e.ImportAs(t, state, livetree.OriginProgrammatic)
}

// ImportAs is Import with an explicit transaction origin. Loading a saved
// document is programmatic; replaying a user-submitted content update as
// OriginDirect lets the change tracker attribute the per-block diffs.
func (e *Engine) ImportAs(t *livetree.Tree, state *doc.DocState, origin livetree.Origin) *domain.IntegrityMismatch {
	_ = t.Update(origin, func() error {
		root := t.Root()
		for _, c := range root.Children() {
			root.RemoveChild(c)
		}
		for _, b := range state.Blocks {
			root.AppendChild(e.importBlock(b))
		}
		return nil
	})

	mismatch := e.checkIntegrity(state, t)
	if !mismatch.Empty() {
		e.logger.Warn("import integrity mismatch",
			"document_id", state.ID,
			"missing_ids", mismatch.MissingIDs,
			"unexpected_ids", mismatch.UnexpectedIDs,
		)
	}
	return mismatch
}

func (e *Engine) importBlock(b *doc.Block) *livetree.Node {
	n := livetree.NewContainer(b.ID, b.Kind)
	n.SetLevel(b.Level)
	n.SetIndentLevel(b.IndentLevel)
	n.SetSectionKey(b.SectionKey)

	if e.kinds.IsText(b.Kind) {
		for _, r := range b.Runs {
			n.AppendChild(livetree.NewText(r))
		}
	}
	for _, c := range b.Children {
		n.AppendChild(e.importBlock(c))
	}

	// Live-tree invariant: a text-bearing block always has a child.
	if e.kinds.IsText(b.Kind) && n.ChildCount() == 0 {
		n.AppendChild(livetree.NewText(doc.TextRun{}))
	}
	return n
}

// checkIntegrity diffs the source's block-id set against the tree's.
func (e *Engine) checkIntegrity(state *doc.DocState, t *livetree.Tree) *domain.IntegrityMismatch {
	want := make(map[string]struct{})
	for _, id := range doc.CollectIDs(state.Blocks) {
		want[id] = struct{}{}
	}

	got := make(map[string]struct{})
	var walk func(*livetree.Node)
	walk = func(n *livetree.Node) {
		if n.IsContainer() && n.BlockID() != "" {
			got[n.BlockID()] = struct{}{}
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(t.Root())

	mismatch := &domain.IntegrityMismatch{DocumentID: state.ID}
	for id := range want {
		if _, ok := got[id]; !ok {
			mismatch.MissingIDs = append(mismatch.MissingIDs, id)
		}
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			mismatch.UnexpectedIDs = append(mismatch.UnexpectedIDs, id)
		}
	}
	sort.Strings(mismatch.MissingIDs)
	sort.Strings(mismatch.UnexpectedIDs)
	return mismatch
}

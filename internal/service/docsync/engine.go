// Package docsync converts bidirectionally between the live editable tree
// and the persistable DocState, preserving block identity in both
// directions. It also implements block-type conversion ("turn into") and the
// debounced export that keeps snapshots cheap under per-keystroke editing.
package docsync

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"docasst/internal/blockkind"
	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
)

// Engine is the synchronization engine. Export and import are pure
// functions over the snapshot and tree handed in by the caller; the engine
// itself holds no document state.
type Engine struct {
	kinds     *blockkind.Registry
	logger    *slog.Logger
	newID     func() string
	sanitizer *bluemonday.Policy
}

// NewEngine creates a synchronization engine.
func NewEngine(kinds *blockkind.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		kinds:     kinds,
		logger:    logger,
		newID:     uuid.NewString,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Export walks the live tree in document order and produces a DocState
// snapshot. Block ids are preserved verbatim - an id is never regenerated
// on export - and adjacent same-style runs are merged so fragmentation does
// not accumulate across round trips. Exporting twice without intervening
// edits yields byte-identical states.
func (e *Engine) Export(t *livetree.Tree, id, title string, version int) *doc.DocState {
	return &doc.DocState{
		ID:      id,
		Title:   title,
		Version: version,
		Blocks:  e.ExportBlocks(t),
	}
}

// ExportBlocks exports only the block list.
func (e *Engine) ExportBlocks(t *livetree.Tree) []*doc.Block {
	blocks := make([]*doc.Block, 0, t.Root().ChildCount())
	for _, n := range t.Blocks() {
		blocks = append(blocks, e.exportNode(n, true))
	}
	return blocks
}

// SnapshotBlocks exports without run merging, so a block's flatten-order
// run indexes align one-to-one with its tree text nodes. Anchor resolution
// that intends to write back through run indexes must resolve against this
// snapshot, not the merged export.
func (e *Engine) SnapshotBlocks(t *livetree.Tree) []*doc.Block {
	blocks := make([]*doc.Block, 0, t.Root().ChildCount())
	for _, n := range t.Blocks() {
		blocks = append(blocks, e.exportNode(n, false))
	}
	return blocks
}

func (e *Engine) exportNode(n *livetree.Node, merge bool) *doc.Block {
	b := &doc.Block{
		ID:          n.BlockID(),
		Kind:        n.Kind(),
		Level:       n.Level(),
		IndentLevel: n.IndentLevel(),
		SectionKey:  n.SectionKey(),
	}

	var runs []doc.TextRun
	for _, c := range n.Children() {
		if c.IsText() {
			runs = append(runs, c.Run())
			continue
		}
		b.Children = append(b.Children, e.exportNode(c, merge))
	}
	if e.kinds.IsText(b.Kind) {
		if merge {
			b.Runs = doc.MergeRuns(runs)
		} else {
			b.Runs = runs
		}
	} else if len(runs) > 0 {
		// Non-text kinds never own runs; drop stray text rather than
		// emitting a malformed block.
		e.logger.Warn("dropping text on non-text block",
			"block_id", b.ID,
			"kind", b.Kind,
		)
	}
	return b
}

package docsync

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"docasst/internal/blockkind"
	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	kinds, err := blockkind.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return NewEngine(kinds, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleState() *doc.DocState {
	return &doc.DocState{
		ID:      "doc-1",
		Title:   "Sample",
		Version: 3,
		Blocks: []*doc.Block{
			{
				ID:    "h1",
				Kind:  doc.KindHeading,
				Level: 1,
				Runs:  []doc.TextRun{{Text: "Title"}},
			},
			{
				ID:   "p1",
				Kind: doc.KindParagraph,
				Runs: []doc.TextRun{
					{Text: "plain "},
					{Text: "bold", Bold: true},
				},
			},
			{
				ID:   "list",
				Kind: doc.KindBulletedList,
				Children: []*doc.Block{
					{ID: "i1", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "item one"}}},
					{ID: "i2", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "item two"}}},
				},
			},
			{ID: "d1", Kind: doc.KindDivider},
		},
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	tree := livetree.NewTree()
	state := sampleState()

	mismatch := e.Import(tree, state)
	if !mismatch.Empty() {
		t.Fatalf("Import() reported mismatch: missing=%v unexpected=%v",
			mismatch.MissingIDs, mismatch.UnexpectedIDs)
	}

	out := e.Export(tree, state.ID, state.Title, state.Version)
	if out.ID != state.ID || out.Title != state.Title || out.Version != state.Version {
		t.Errorf("metadata = %s/%s/%d, want %s/%s/%d",
			out.ID, out.Title, out.Version, state.ID, state.Title, state.Version)
	}
	if !reflect.DeepEqual(out.Blocks, state.Blocks) {
		t.Errorf("round trip changed blocks:\ngot  %+v\nwant %+v", out.Blocks, state.Blocks)
	}

	// A second export without intervening edits must be identical.
	again := e.Export(tree, state.ID, state.Title, state.Version)
	if !reflect.DeepEqual(out, again) {
		t.Error("repeated export differs from first export")
	}
}

func TestImportSynthesizesEmptyRun(t *testing.T) {
	e := newTestEngine(t)
	tree := livetree.NewTree()

	state := &doc.DocState{
		ID: "doc-1",
		Blocks: []*doc.Block{
			{ID: "p1", Kind: doc.KindParagraph}, // text-bearing, zero runs
		},
	}
	e.Import(tree, state)

	container := tree.FindContainer("p1")
	if container == nil {
		t.Fatal("imported block not found in tree")
	}
	if container.ChildCount() != 1 {
		t.Fatalf("text-bearing block has %d children, want 1 synthesized", container.ChildCount())
	}
	child := container.Child(0)
	if !child.IsText() || child.Text() != "" {
		t.Error("synthesized child is not an empty text node")
	}
}

func TestImportReplacesPreviousContent(t *testing.T) {
	e := newTestEngine(t)
	tree := livetree.NewTree()

	e.Import(tree, sampleState())
	e.Import(tree, &doc.DocState{
		ID:     "doc-1",
		Blocks: []*doc.Block{{ID: "only", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "x"}}}},
	})

	if got := len(tree.Blocks()); got != 1 {
		t.Errorf("tree has %d top-level blocks after re-import, want 1", got)
	}
	if tree.FindContainer("p1") != nil {
		t.Error("old block survived re-import")
	}
}

func TestExportMergesAdjacentRuns(t *testing.T) {
	e := newTestEngine(t)
	tree := livetree.NewTree()

	state := &doc.DocState{
		ID: "doc-1",
		Blocks: []*doc.Block{{
			ID:   "p1",
			Kind: doc.KindParagraph,
			Runs: []doc.TextRun{{Text: "frag"}, {Text: "mented"}},
		}},
	}
	e.Import(tree, state)

	merged := e.ExportBlocks(tree)
	if len(merged[0].Runs) != 1 || merged[0].Runs[0].Text != "fragmented" {
		t.Errorf("ExportBlocks runs = %+v, want one merged run", merged[0].Runs)
	}

	// The unmerged snapshot keeps run indexes aligned with tree nodes.
	snap := e.SnapshotBlocks(tree)
	if len(snap[0].Runs) != 2 {
		t.Errorf("SnapshotBlocks runs = %+v, want two unmerged runs", snap[0].Runs)
	}
}

func TestTurnInto(t *testing.T) {
	tests := []struct {
		name      string
		fromKind  doc.BlockKind
		toKind    doc.BlockKind
		level     int
		wantErr   bool
		wantText  string
		checkList bool
	}{
		{
			name:     "paragraph to heading keeps id and text",
			fromKind: doc.KindParagraph,
			toKind:   doc.KindHeading,
			level:    2,
			wantText: "some content",
		},
		{
			name:     "heading level out of range",
			fromKind: doc.KindParagraph,
			toKind:   doc.KindHeading,
			level:    4,
			wantErr:  true,
		},
		{
			name:     "unknown target kind",
			fromKind: doc.KindParagraph,
			toKind:   "marquee",
			wantErr:  true,
		},
		{
			name:      "paragraph to list wraps text as one item",
			fromKind:  doc.KindParagraph,
			toKind:    doc.KindBulletedList,
			wantText:  "some content",
			checkList: true,
		},
		{
			name:     "paragraph to divider drops text",
			fromKind: doc.KindParagraph,
			toKind:   doc.KindDivider,
			wantText: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			tree := livetree.NewTree()
			e.Import(tree, &doc.DocState{
				ID: "doc-1",
				Blocks: []*doc.Block{{
					ID:   "b1",
					Kind: tt.fromKind,
					Runs: []doc.TextRun{{Text: "some content"}},
				}},
			})

			target := tree.FindContainer("b1")
			err := e.TurnInto(tree, target, tt.toKind, tt.level)

			if tt.wantErr {
				if err == nil {
					t.Fatal("TurnInto() expected error, got nil")
				}
				if tree.FindContainer("b1").Kind() != tt.fromKind {
					t.Error("failed conversion mutated the block")
				}
				return
			}
			if err != nil {
				t.Fatalf("TurnInto() unexpected error: %v", err)
			}

			converted := tree.FindContainer("b1")
			if converted == nil {
				t.Fatal("block id lost across conversion")
			}
			if converted.Kind() != tt.toKind {
				t.Errorf("kind = %s, want %s", converted.Kind(), tt.toKind)
			}
			if converted.Level() != tt.level {
				t.Errorf("level = %d, want %d", converted.Level(), tt.level)
			}
			if got := livetree.FlattenText(converted); got != tt.wantText {
				t.Errorf("flattened text = %q, want %q", got, tt.wantText)
			}
			if tt.checkList {
				if converted.ChildCount() != 1 {
					t.Fatalf("list has %d children, want 1 wrapped item", converted.ChildCount())
				}
				item := converted.Child(0)
				if item.Kind() != doc.KindParagraph || item.BlockID() == "b1" {
					t.Errorf("wrapped item = %s/%s, want a fresh paragraph", item.BlockID(), item.Kind())
				}
			}
		})
	}
}

func TestTurnIntoDividerToParagraph(t *testing.T) {
	e := newTestEngine(t)
	tree := livetree.NewTree()
	e.Import(tree, &doc.DocState{
		ID:     "doc-1",
		Blocks: []*doc.Block{{ID: "d1", Kind: doc.KindDivider}},
	})

	if err := e.TurnInto(tree, tree.FindContainer("d1"), doc.KindParagraph, 0); err != nil {
		t.Fatalf("TurnInto() error: %v", err)
	}

	converted := tree.FindContainer("d1")
	if converted.ChildCount() != 1 || !converted.Child(0).IsText() {
		t.Error("non-text to text conversion must synthesize an empty run")
	}
}

func TestTurnIntoSelectionLandsAtStart(t *testing.T) {
	e := newTestEngine(t)
	tree := livetree.NewTree()
	e.Import(tree, &doc.DocState{
		ID: "doc-1",
		Blocks: []*doc.Block{{
			ID:   "b1",
			Kind: doc.KindParagraph,
			Runs: []doc.TextRun{{Text: "content"}},
		}},
	})

	if err := e.TurnInto(tree, tree.FindContainer("b1"), doc.KindQuote, 0); err != nil {
		t.Fatalf("TurnInto() error: %v", err)
	}

	sel := tree.Selection()
	if !sel.Collapsed() {
		t.Error("selection after conversion should be collapsed")
	}
	if sel.Start.Node == nil || !sel.Start.Node.IsText() || sel.Start.Offset != 0 {
		t.Errorf("selection = %+v, want collapsed at start of transferred text", sel.Start)
	}
}

package spanres

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
)

func newTestResolver() *Resolver {
	return NewResolver(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func intPtr(v int) *int { return &v }

func paragraph(id string, texts ...string) *doc.Block {
	runs := make([]doc.TextRun, 0, len(texts))
	for _, s := range texts {
		runs = append(runs, doc.TextRun{Text: s})
	}
	return &doc.Block{ID: id, Kind: doc.KindParagraph, Runs: runs}
}

func TestResolveOffsetFastPath(t *testing.T) {
	r := newTestResolver()
	blocks := []*doc.Block{paragraph("b1", "the quick brown fox")}

	anchor := doc.Anchor{
		BlockID:      "b1",
		SnapshotText: "quick",
		StartOffset:  intPtr(4),
		EndOffset:    intPtr(9),
	}

	span, err := r.Resolve(anchor, blocks)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if span.Path != PathOffset {
		t.Errorf("path = %q, want %q", span.Path, PathOffset)
	}
	if span.Start != 4 || span.End != 9 {
		t.Errorf("range = [%d,%d), want [4,9)", span.Start, span.End)
	}
}

func TestResolveFallsBackToExactSearchWhenOffsetsDrift(t *testing.T) {
	r := newTestResolver()
	// Text was edited before the anchor: the offsets no longer slice out
	// the snapshot, but the words still exist.
	blocks := []*doc.Block{paragraph("b1", "oh, the quick brown fox")}

	anchor := doc.Anchor{
		BlockID:      "b1",
		SnapshotText: "quick",
		StartOffset:  intPtr(4),
		EndOffset:    intPtr(9),
	}

	span, err := r.Resolve(anchor, blocks)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if span.Path != PathExact {
		t.Errorf("path = %q, want %q", span.Path, PathExact)
	}
	if span.Start != 8 || span.End != 13 {
		t.Errorf("range = [%d,%d), want [8,13)", span.Start, span.End)
	}
}

func TestResolvePrefersWordBoundaryOccurrence(t *testing.T) {
	r := newTestResolver()
	// "art" occurs inside "start" before it occurs as a word.
	blocks := []*doc.Block{paragraph("b1", "start with art today")}

	anchor := doc.Anchor{BlockID: "b1", SnapshotText: "art"}

	span, err := r.Resolve(anchor, blocks)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if span.Start != 11 || span.End != 14 {
		t.Errorf("range = [%d,%d), want the word-boundary occurrence [11,14)", span.Start, span.End)
	}
}

func TestResolveCaseInsensitiveOnlyWhenExactMisses(t *testing.T) {
	r := newTestResolver()

	t.Run("exact hit wins over case-insensitive candidates", func(t *testing.T) {
		blocks := []*doc.Block{paragraph("b1", "Fox and fox")}
		anchor := doc.Anchor{BlockID: "b1", SnapshotText: "fox"}
		span, err := r.Resolve(anchor, blocks)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if span.Path != PathExact {
			t.Errorf("path = %q, want %q", span.Path, PathExact)
		}
		if span.Start != 8 {
			t.Errorf("start = %d, want 8 (the exact-case occurrence)", span.Start)
		}
	})

	t.Run("case-insensitive fires when exact finds nothing", func(t *testing.T) {
		blocks := []*doc.Block{paragraph("b1", "THE QUICK FOX")}
		anchor := doc.Anchor{BlockID: "b1", SnapshotText: "quick"}
		span, err := r.Resolve(anchor, blocks)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if span.Path != PathCaseInsensitive {
			t.Errorf("path = %q, want %q", span.Path, PathCaseInsensitive)
		}
		if span.Start != 4 || span.End != 9 {
			t.Errorf("range = [%d,%d), want [4,9)", span.Start, span.End)
		}
	})
}

func TestResolveExhaustedReturnsAnchorNotFound(t *testing.T) {
	r := newTestResolver()
	blocks := []*doc.Block{paragraph("b1", "entirely different content")}

	tests := []struct {
		name   string
		anchor doc.Anchor
	}{
		{"snapshot gone", doc.Anchor{BlockID: "b1", SnapshotText: "vanished words"}},
		{"block gone", doc.Anchor{BlockID: "missing", SnapshotText: "anything"}},
		{"empty snapshot", doc.Anchor{BlockID: "b1", SnapshotText: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.anchor, blocks)
			if !errors.Is(err, domain.ErrAnchorNotFound) {
				t.Errorf("Resolve() error = %v, want ErrAnchorNotFound", err)
			}
		})
	}
}

func TestResolveAllMultiBlockDegradation(t *testing.T) {
	r := newTestResolver()
	// The anchor spanned three blocks. The first still matches its head
	// probe, the second was rewritten entirely but has text, the third is
	// gone from the document.
	snapshot := "the first paragraph of the selection here\nmiddle words\ntail paragraph of the selection text"
	blocks := []*doc.Block{
		paragraph("b1", "the first paragraph of the selection here, extended"),
		paragraph("b2", "completely rewritten since"),
	}

	anchor := doc.Anchor{
		BlockID:      "b1",
		BlockIDs:     []string{"b1", "b2", "b3"},
		SnapshotText: snapshot,
	}

	spans, err := r.ResolveAll(anchor, blocks)
	if err != nil {
		t.Fatalf("ResolveAll() error: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("ResolveAll() returned %d spans, want 2", len(spans))
	}
	if spans[0].BlockID != "b1" || spans[0].Path != PathPartial {
		t.Errorf("span 0 = %s/%s, want b1/%s", spans[0].BlockID, spans[0].Path, PathPartial)
	}
	if spans[1].BlockID != "b2" || spans[1].Path != PathWholeBlock {
		t.Errorf("span 1 = %s/%s, want b2/%s", spans[1].BlockID, spans[1].Path, PathWholeBlock)
	}
	if spans[1].Start != 0 || spans[1].End != 26 {
		t.Errorf("whole-block span = [%d,%d), want the full block", spans[1].Start, spans[1].End)
	}
}

func TestResolveAllEveryBlockGone(t *testing.T) {
	r := newTestResolver()
	blocks := []*doc.Block{paragraph("other", "unrelated")}

	anchor := doc.Anchor{
		BlockID:      "b1",
		BlockIDs:     []string{"b1", "b2"},
		SnapshotText: "whatever was selected",
	}

	_, err := r.ResolveAll(anchor, blocks)
	if !errors.Is(err, domain.ErrAnchorNotFound) {
		t.Errorf("ResolveAll() error = %v, want ErrAnchorNotFound", err)
	}
}

func TestProjectionThresholds(t *testing.T) {
	r := newTestResolver()

	// Three runs of 30 characters each; the match covers all of run 1 and
	// a 3-character sliver of run 2. Run 2's overlap is under half the run
	// and under half the selection, so it is excluded.
	blocks := []*doc.Block{paragraph("b1",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"cccccccccccccccccccccccccccccc",
	)}
	anchor := doc.Anchor{
		BlockID:      "b1",
		SnapshotText: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaabbb",
		StartOffset:  intPtr(0),
		EndOffset:    intPtr(33),
	}

	span, err := r.Resolve(anchor, blocks)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(span.RunRanges) != 1 {
		t.Fatalf("got %d run ranges, want 1 (marginal overlap excluded): %+v", len(span.RunRanges), span.RunRanges)
	}
	if span.RunRanges[0].RunIndex != 0 {
		t.Errorf("run index = %d, want 0", span.RunRanges[0].RunIndex)
	}
}

func TestProjectionKeepsSliverRuns(t *testing.T) {
	r := newTestResolver()

	// A one-character formatting sliver in the middle of the match. Its
	// overlap is tiny in both ratios, but runs under the sliver threshold
	// are always included.
	blocks := []*doc.Block{paragraph("b1",
		"the quick brown fox jumps over",
		"!",
		"the lazy dog and keeps running",
	)}
	flat := "the quick brown fox jumps over!the lazy dog and keeps running"
	anchor := doc.Anchor{
		BlockID:      "b1",
		SnapshotText: flat,
		StartOffset:  intPtr(0),
		EndOffset:    intPtr(len(flat)),
	}

	span, err := r.Resolve(anchor, blocks)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(span.RunRanges) != 3 {
		t.Fatalf("got %d run ranges, want 3 (sliver included): %+v", len(span.RunRanges), span.RunRanges)
	}
	if span.RunRanges[1].RunIndex != 1 || span.RunRanges[1].StartInRun != 0 || span.RunRanges[1].EndInRun != 1 {
		t.Errorf("sliver range = %+v, want run 1 [0,1)", span.RunRanges[1])
	}
}

func TestRunSequenceFlattenOrder(t *testing.T) {
	list := &doc.Block{
		ID:   "list",
		Kind: doc.KindBulletedList,
		Runs: []doc.TextRun{{Text: "intro"}},
		Children: []*doc.Block{
			{ID: "i1", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "one"}, {Text: "two"}}},
			{ID: "i2", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "three"}}},
		},
	}

	seq := RunSequence(list)
	if len(seq) != 4 {
		t.Fatalf("RunSequence() returned %d runs, want 4", len(seq))
	}
	got := make([]string, len(seq))
	for i, loc := range seq {
		got[i] = loc.Owner.Runs[loc.Index].Text
	}
	want := []string{"intro", "one", "two", "three"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("run %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveInsideListItem(t *testing.T) {
	r := newTestResolver()
	blocks := []*doc.Block{{
		ID:   "list",
		Kind: doc.KindBulletedList,
		Children: []*doc.Block{
			{ID: "i1", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "first item"}}},
			{ID: "i2", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "second item"}}},
		},
	}}

	anchor := doc.Anchor{BlockID: "i2", SnapshotText: "second"}
	span, err := r.Resolve(anchor, blocks)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if span.BlockID != "i2" {
		t.Errorf("block id = %q, want i2", span.BlockID)
	}
	if span.Path != PathExact {
		t.Errorf("path = %q, want %q", span.Path, PathExact)
	}
}

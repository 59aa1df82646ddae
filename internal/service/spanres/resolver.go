// Package spanres locates the live text range an anchor points at. Anchors
// are created against a snapshot of text; offsets drift or vanish the moment
// anyone else edits the document, so resolution runs a graduated ladder of
// heuristics: exact offsets, exact substring search, case-insensitive
// search, and - for multi-block anchors - partial head/tail probes that
// degrade to whole-block highlights rather than losing the annotation.
package spanres

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"docasst/internal/config"
	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
)

// MatchPath records which heuristic produced a resolution. Tests and
// diagnostics depend on knowing that the offset fast path fired without
// falling through to search.
type MatchPath string

const (
	PathOffset          MatchPath = "offset"
	PathExact           MatchPath = "exact"
	PathCaseInsensitive MatchPath = "case_insensitive"
	PathPartial         MatchPath = "partial"
	PathWholeBlock      MatchPath = "whole_block"
)

// RunRange addresses a slice of one run. RunIndex counts runs in the
// block's flatten order (recursing into list-item children); offsets are
// rune offsets within that run.
type RunRange struct {
	RunIndex   int `json:"run_index"`
	StartInRun int `json:"start_in_run"`
	EndInRun   int `json:"end_in_run"`
}

// ResolvedSpan is a located anchor: the owning block and the run slices the
// highlight covers.
type ResolvedSpan struct {
	BlockID   string     `json:"block_id"`
	RunRanges []RunRange `json:"run_ranges"`
	Path      MatchPath  `json:"path"`
	// Start and End are the resolved rune offsets into the block's
	// flattened text.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Resolver resolves anchors against a document snapshot. It is a pure
// function over the blocks passed in; it holds no document state and needs
// no synchronization of its own.
type Resolver struct {
	logger *slog.Logger
	probe  int // head/tail probe length for multi-block partial matching
	sliver int // run length under which any overlap includes the run
}

// NewResolver creates a resolver with the standard probe and sliver limits.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{
		logger: logger,
		probe:  config.PartialMatchProbe,
		sliver: config.SliverRunChars,
	}
}

// Resolve locates the anchor's best-matching live range. For multi-block
// anchors it returns the first block's span; ResolveAll returns one span per
// qualifying block. Returns domain.ErrAnchorNotFound when every heuristic
// is exhausted - callers keep the annotation and render it unhighlighted,
// they never crash or delete it.
func (r *Resolver) Resolve(anchor doc.Anchor, blocks []*doc.Block) (*ResolvedSpan, error) {
	if anchor.MultiBlock() {
		spans, err := r.ResolveAll(anchor, blocks)
		if err != nil {
			return nil, err
		}
		return spans[0], nil
	}

	block := doc.FindBlock(blocks, anchor.BlockID)
	if block == nil {
		r.logger.Debug("anchor block missing", "block_id", anchor.BlockID)
		return nil, fmt.Errorf("block %s: %w", anchor.BlockID, domain.ErrAnchorNotFound)
	}

	span := r.resolveInBlock(anchor, block)
	if span == nil {
		r.logger.Debug("anchor unresolved",
			"block_id", anchor.BlockID,
			"snapshot_len", utf8.RuneCountInString(anchor.SnapshotText),
		)
		return nil, fmt.Errorf("block %s: %w", anchor.BlockID, domain.ErrAnchorNotFound)
	}
	return span, nil
}

// ResolveAll resolves a multi-block anchor to one span per qualifying block,
// in anchor order. A block qualifies if the snapshot text, its head probe,
// or its tail probe matches - or, as a last resort, if the block has any
// text at all, in which case the whole block is highlighted. Multi-block
// annotations degrade gracefully to "highlight the whole paragraph" rather
// than disappearing.
func (r *Resolver) ResolveAll(anchor doc.Anchor, blocks []*doc.Block) ([]*ResolvedSpan, error) {
	ids := anchor.BlockIDs
	if len(ids) == 0 {
		ids = []string{anchor.BlockID}
	}

	var spans []*ResolvedSpan
	for _, id := range ids {
		block := doc.FindBlock(blocks, id)
		if block == nil {
			continue
		}
		if span := r.resolveInBlock(anchor, block); span != nil {
			spans = append(spans, span)
			continue
		}
		if !anchor.MultiBlock() {
			continue
		}
		if span := r.resolvePartial(anchor, block); span != nil {
			spans = append(spans, span)
		}
	}
	if len(spans) == 0 {
		return nil, fmt.Errorf("blocks %v: %w", ids, domain.ErrAnchorNotFound)
	}
	return spans, nil
}

// resolveInBlock runs the single-block ladder: offset fast path, exact
// substring, then case-insensitive substring.
func (r *Resolver) resolveInBlock(anchor doc.Anchor, block *doc.Block) *ResolvedSpan {
	flat := []rune(doc.FlattenText(block))
	snap := []rune(anchor.SnapshotText)
	if len(snap) == 0 {
		return nil
	}

	// Offset fast path: if the offsets still slice out the snapshot text
	// exactly, no search is needed.
	if anchor.StartOffset != nil && anchor.EndOffset != nil {
		s, e := *anchor.StartOffset, *anchor.EndOffset
		if s >= 0 && e <= len(flat) && s < e && runesEqual(flat[s:e], snap) {
			return r.project(block, flat, s, e, PathOffset)
		}
	}

	// Exact, case-sensitive search. With multiple occurrences, prefer the
	// one flanked by word boundaries; otherwise take the first.
	if hits := findAll(flat, snap); len(hits) > 0 {
		start := pickOccurrence(flat, hits, len(snap))
		return r.project(block, flat, start, start+len(snap), PathExact)
	}

	// Case-insensitive only runs when the exact search found nothing.
	if hits := findAll(lowerRunes(flat), lowerRunes(snap)); len(hits) > 0 {
		start := pickOccurrence(flat, hits, len(snap))
		return r.project(block, flat, start, start+len(snap), PathCaseInsensitive)
	}

	return nil
}

// resolvePartial is the multi-block fallback for one candidate block: locate
// the snapshot's first or last probe characters, else highlight the whole
// block if it has any text.
func (r *Resolver) resolvePartial(anchor doc.Anchor, block *doc.Block) *ResolvedSpan {
	flat := []rune(doc.FlattenText(block))
	if len(flat) == 0 {
		return nil
	}
	snap := []rune(anchor.SnapshotText)

	probes := [][]rune{}
	if len(snap) > r.probe {
		probes = append(probes, snap[:r.probe], snap[len(snap)-r.probe:])
	}
	for _, probe := range probes {
		if hits := findAll(flat, probe); len(hits) > 0 {
			start := hits[0]
			return r.project(block, flat, start, start+len(probe), PathPartial)
		}
	}

	// Last resort: the block has text, so highlight all of it rather than
	// leaving the multi-block annotation unanchored here.
	return r.project(block, flat, 0, len(flat), PathWholeBlock)
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

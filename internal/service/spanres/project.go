package spanres

import (
	"unicode/utf8"

	"docasst/internal/domain/models/doc"
)

// RunLoc addresses one run in a block's flatten-order run sequence: the
// block that owns it (the block itself, or a list-item child) and the run's
// index within that owner.
type RunLoc struct {
	Owner *doc.Block
	Index int
}

// RunSequence returns the block's runs in flatten order, recursing into
// children the same way FlattenText does, so a flattened-text offset maps
// cleanly onto run indexes.
func RunSequence(block *doc.Block) []RunLoc {
	var out []RunLoc
	var walk func(*doc.Block)
	walk = func(b *doc.Block) {
		for i := range b.Runs {
			out = append(out, RunLoc{Owner: b, Index: i})
		}
		for _, c := range b.Children {
			walk(c)
		}
	}
	walk(block)
	return out
}

// project maps a resolved [start, end) range in the block's flattened text
// onto run ranges. A run is included when its overlap covers at least half
// the run, at least half the selection, or the run is shorter than the
// sliver threshold and overlaps at all. Naive any-overlap highlighting
// over-selects when a match straddles a formatting boundary; the thresholds
// keep highlights tight without dropping one-character sliver runs.
func (r *Resolver) project(block *doc.Block, flat []rune, start, end int, path MatchPath) *ResolvedSpan {
	if start >= end {
		return nil
	}
	selLen := end - start

	span := &ResolvedSpan{
		BlockID: block.ID,
		Path:    path,
		Start:   start,
		End:     end,
	}

	pos := 0
	for idx, loc := range RunSequence(block) {
		runLen := utf8.RuneCountInString(loc.Owner.Runs[loc.Index].Text)
		runStart, runEnd := pos, pos+runLen
		pos = runEnd
		if runLen == 0 {
			continue
		}

		overlapStart := maxInt(start, runStart)
		overlapEnd := minInt(end, runEnd)
		overlap := overlapEnd - overlapStart
		if overlap <= 0 {
			continue
		}

		include := overlap*2 >= runLen ||
			overlap*2 >= selLen ||
			runLen < r.sliver
		if !include {
			continue
		}

		span.RunRanges = append(span.RunRanges, RunRange{
			RunIndex:   idx,
			StartInRun: overlapStart - runStart,
			EndInRun:   overlapEnd - runStart,
		})
	}

	if len(span.RunRanges) == 0 {
		return nil
	}
	return span
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

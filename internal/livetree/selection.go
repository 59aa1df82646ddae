package livetree

import (
	"strings"
	"unicode/utf8"
)

// Point addresses a position in the tree: a rune offset within a text node,
// or a child index within a container.
type Point struct {
	Node   *Node
	Offset int
}

// Selection is a pair of points. Start and end are in document order; a
// collapsed selection has identical points.
type Selection struct {
	Start Point
	End   Point
}

// Collapsed reports whether the selection selects nothing.
func (s Selection) Collapsed() bool {
	return s.Start.Node == nil || (s.Start.Node == s.End.Node && s.Start.Offset == s.End.Offset)
}

// Info is the renderer-independent description of a selection the core
// operates on: which top-level blocks it touches, the selected text, and -
// for single-block selections only - the rune offsets into the block's
// flattened text. Offsets for multi-block selections are deliberately
// absent; anchors over several blocks fall back to snapshot-text matching.
type Info struct {
	BlockIDs    []string
	Text        string
	StartOffset *int
	EndOffset   *int
}

// Empty reports whether the selection carried no text at all.
func (i Info) Empty() bool { return len(i.BlockIDs) == 0 || i.Text == "" }

// DescribeSelection resolves the current selection into an Info. A collapsed
// or detached selection yields a zero Info.
func (t *Tree) DescribeSelection() Info {
	return t.Describe(t.sel)
}

// Describe resolves an arbitrary selection against the tree.
func (t *Tree) Describe(sel Selection) Info {
	if sel.Collapsed() {
		return Info{}
	}

	startBlock := t.topLevelAncestor(sel.Start.Node)
	endBlock := t.topLevelAncestor(sel.End.Node)
	if startBlock == nil || endBlock == nil {
		return Info{}
	}

	startIdx := t.root.IndexOf(startBlock)
	endIdx := t.root.IndexOf(endBlock)
	if startIdx < 0 || endIdx < 0 {
		return Info{}
	}
	if startIdx > endIdx {
		startIdx, endIdx = endIdx, startIdx
		startBlock, endBlock = endBlock, startBlock
		sel.Start, sel.End = sel.End, sel.Start
	}

	startOff := blockOffsetOf(startBlock, sel.Start)
	endOff := blockOffsetOf(endBlock, sel.End)

	if startBlock == endBlock {
		if startOff > endOff {
			startOff, endOff = endOff, startOff
		}
		text := sliceRunes(FlattenText(startBlock), startOff, endOff)
		if text == "" {
			return Info{}
		}
		s, e := startOff, endOff
		return Info{
			BlockIDs:    []string{startBlock.BlockID()},
			Text:        text,
			StartOffset: &s,
			EndOffset:   &e,
		}
	}

	var ids []string
	var parts []string
	for i := startIdx; i <= endIdx; i++ {
		block := t.root.children[i]
		flat := FlattenText(block)
		switch {
		case i == startIdx:
			parts = append(parts, sliceRunes(flat, startOff, utf8.RuneCountInString(flat)))
		case i == endIdx:
			parts = append(parts, sliceRunes(flat, 0, endOff))
		default:
			parts = append(parts, flat)
		}
		ids = append(ids, block.BlockID())
	}
	return Info{
		BlockIDs: ids,
		Text:     strings.Join(parts, "\n"),
	}
}

// topLevelAncestor ascends to the top-level block container under the root.
func (t *Tree) topLevelAncestor(n *Node) *Node {
	if n == nil {
		return nil
	}
	cur := n
	for cur.parent != nil && cur.parent != t.root {
		cur = cur.parent
	}
	if cur.parent != t.root || !cur.IsContainer() {
		return nil
	}
	return cur
}

// blockOffsetOf computes the rune offset of a point within its block's
// flattened text by accumulating the lengths of preceding text nodes.
func blockOffsetOf(block *Node, p Point) int {
	offset := 0
	done := false
	var walk func(*Node) bool
	walk = func(cur *Node) bool {
		if cur == p.Node {
			if cur.isText {
				offset += clampOffset(p.Offset, utf8.RuneCountInString(cur.run.Text))
				return true
			}
			// Container point: offset counts children wholly before it.
			for i := 0; i < clampOffset(p.Offset, len(cur.children)); i++ {
				offset += utf8.RuneCountInString(FlattenText(cur.children[i]))
			}
			return true
		}
		if cur.isText {
			offset += utf8.RuneCountInString(cur.run.Text)
			return false
		}
		for _, c := range cur.children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	done = walk(block)
	if !done {
		return 0
	}
	return offset
}

func clampOffset(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// TextNodesInRange returns the text nodes of a container overlapping the
// rune range [start, end) of its flattened text. Used at annotation creation
// time, where the boundaries come from the exact live selection and any
// overlap is intentional.
func TextNodesInRange(container *Node, start, end int) []*Node {
	var out []*Node
	pos := 0
	for _, tn := range TextNodes(container) {
		length := utf8.RuneCountInString(tn.run.Text)
		nodeStart, nodeEnd := pos, pos+length
		pos = nodeEnd
		if nodeEnd <= start || nodeStart >= end {
			continue
		}
		out = append(out, tn)
	}
	return out
}

// sliceRunes slices a string by rune offsets, clamping out-of-range bounds.
func sliceRunes(s string, start, end int) string {
	runes := []rune(s)
	start = clampOffset(start, len(runes))
	end = clampOffset(end, len(runes))
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

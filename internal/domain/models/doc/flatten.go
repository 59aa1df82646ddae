package doc

import "strings"

// FlattenText concatenates all run texts of a block in document order,
// recursing into children (list items, nested lists). Non-text blocks
// flatten to the empty string.
func FlattenText(b *Block) string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	flattenInto(&sb, b)
	return sb.String()
}

func flattenInto(sb *strings.Builder, b *Block) {
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	for _, c := range b.Children {
		flattenInto(sb, c)
	}
}

// MergeRuns coalesces adjacent runs with identical formatting and annotation
// state and drops empty runs. Merging is not required for correctness, but
// doing it on export keeps run fragmentation from accumulating over edits.
// If every run is empty, a single empty run carrying the first run's style is
// kept so the block still renders.
func MergeRuns(runs []TextRun) []TextRun {
	if len(runs) == 0 {
		return nil
	}
	out := make([]TextRun, 0, len(runs))
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].SameStyle(r) {
			out[n-1].Text += r.Text
			continue
		}
		// Copy the comment-id slice so merged output never aliases input.
		if r.CommentIDs != nil {
			r.CommentIDs = append([]string(nil), r.CommentIDs...)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		empty := runs[0]
		empty.Text = ""
		if empty.CommentIDs != nil {
			empty.CommentIDs = append([]string(nil), empty.CommentIDs...)
		}
		return []TextRun{empty}
	}
	return out
}

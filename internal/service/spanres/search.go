package spanres

import "unicode"

// findAll returns the start offsets of every occurrence of needle in
// haystack, in rune space. Occurrences may overlap.
func findAll(haystack, needle []rune) []int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return nil
	}
	var hits []int
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if runesEqual(haystack[i:i+len(needle)], needle) {
			hits = append(hits, i)
		}
	}
	return hits
}

func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// pickOccurrence chooses among several hits: the first occurrence whose
// surrounding characters are word boundaries wins; with no such occurrence
// the first one does. A single hit is returned as-is.
func pickOccurrence(flat []rune, hits []int, length int) int {
	if len(hits) == 1 {
		return hits[0]
	}
	for _, start := range hits {
		if boundaryBefore(flat, start) && boundaryAfter(flat, start+length) {
			return start
		}
	}
	return hits[0]
}

// boundaryBefore reports whether position i sits at a word boundary looking
// left: start of text, or a whitespace/punctuation rune before it.
func boundaryBefore(flat []rune, i int) bool {
	if i == 0 {
		return true
	}
	return isBoundaryRune(flat[i-1])
}

// boundaryAfter reports whether position i sits at a word boundary looking
// right: end of text, or a whitespace/punctuation rune at it.
func boundaryAfter(flat []rune, i int) bool {
	if i >= len(flat) {
		return true
	}
	return isBoundaryRune(flat[i])
}

// isBoundaryRune uses Unicode classification: whitespace, punctuation and
// symbols all separate words.
func isBoundaryRune(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Package selection classifies the current live-tree selection to route
// user actions: short single-block selections go to comment creation,
// everything bigger goes to batch AI requests that operate over whole
// blocks.
package selection

import (
	"unicode/utf8"

	"docasst/internal/config"
	"docasst/internal/livetree"
)

// Scope is the routing decision for a selection.
type Scope string

const (
	ScopeNone   Scope = "none"
	ScopeText   Scope = "text"
	ScopeBlocks Scope = "blocks"
)

// Classification describes a selection for routing.
type Classification struct {
	Scope    Scope    `json:"scope"`
	BlockIDs []string `json:"block_ids,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// Classify maps a described selection to its scope. A collapsed selection
// is always none. A selection within exactly one block and under the
// text-scope threshold is text; spanning two blocks - even by a handful of
// characters - or reaching the threshold within one block makes it blocks.
// The threshold is asymmetric on purpose: comments anchor best to short,
// precisely-located spans, while AI rewrites only mean anything at block
// granularity.
func Classify(info livetree.Info) Classification {
	if info.Empty() {
		return Classification{Scope: ScopeNone}
	}
	if len(info.BlockIDs) == 1 && utf8.RuneCountInString(info.Text) < config.MaxTextScopeChars {
		return Classification{
			Scope:    ScopeText,
			BlockIDs: info.BlockIDs,
			Text:     info.Text,
		}
	}
	return Classification{
		Scope:    ScopeBlocks,
		BlockIDs: info.BlockIDs,
		Text:     info.Text,
	}
}

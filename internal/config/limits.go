package config

import "time"

// Limits the annotation and synchronization core depends on. Gathered here
// so the heuristics' magic numbers have one home.
const (
	// MaxTextScopeChars is the selection length at which a single-block
	// selection stops classifying as text scope and becomes blocks scope.
	// Comments anchor best to short, precisely-located spans; AI rewrites
	// operate meaningfully only at block granularity. A 499-character
	// selection is text scope, a 500-character one is not.
	MaxTextScopeChars = 500

	// PartialMatchProbe is how many characters of the snapshot's head and
	// tail the multi-block fallback tries to locate in each spanned block.
	PartialMatchProbe = 20

	// SliverRunChars is the run length below which any overlap at all pulls
	// the run into a resolved span. Without it, one-character sliver runs at
	// formatting boundaries get silently dropped.
	SliverRunChars = 20

	// ExportDebounce coalesces live-tree exports so the document is not
	// re-serialized on every keystroke. Flushing is synchronous before any
	// operation that needs a guaranteed-fresh snapshot.
	ExportDebounce = 400 * time.Millisecond

	// MaxCommentBodyLength bounds comment and reply bodies.
	MaxCommentBodyLength = 10000

	// MaxSuggestionInstructionLength bounds the free-form instruction sent
	// with a batch AI request.
	MaxSuggestionInstructionLength = 2000

	// MaxDocumentTitleLength bounds document titles.
	MaxDocumentTitleLength = 255
)

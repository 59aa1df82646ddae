package doc

import "time"

// Anchor is the persisted reference a comment or suggestion uses to point at
// "the same words" after the surrounding document has been edited. Offsets
// are character (rune) offsets into the block's concatenated text as it was
// at creation time; they are captured once and never recomputed. Anchors are
// immutable once created.
type Anchor struct {
	// BlockID is the primary block the anchor targets.
	BlockID string `json:"block_id"`
	// BlockIDs lists every block spanned, for multi-block selections.
	BlockIDs []string `json:"block_ids,omitempty"`
	// SnapshotText is the text as selected at creation time.
	SnapshotText string `json:"snapshot_text"`
	StartOffset  *int   `json:"start_offset,omitempty"`
	EndOffset    *int   `json:"end_offset,omitempty"`
}

// MultiBlock reports whether the anchor spans more than one block.
func (a Anchor) MultiBlock() bool {
	return len(a.BlockIDs) > 1
}

// Comment is a threaded annotation on a span of text. Replies do not carry
// their own anchors; they inherit the parent's.
type Comment struct {
	ID        string     `json:"id"`
	Anchor    Anchor     `json:"anchor"`
	Body      string     `json:"body"`
	Author    string     `json:"author"`
	Timestamp time.Time  `json:"timestamp"`
	Replies   []*Comment `json:"replies,omitempty"`
	// Resolved is a soft-delete from the active view; the comment itself
	// stays in the list.
	Resolved bool `json:"resolved"`
}

// SuggestionStatus is the lifecycle state of an AI suggestion.
type SuggestionStatus string

const (
	SuggestionSuggested SuggestionStatus = "suggested"
	SuggestionApplied   SuggestionStatus = "applied"
	SuggestionRejected  SuggestionStatus = "rejected"
)

// Terminal reports whether no further lifecycle transition is allowed.
// Applied and rejected suggestions only change appearance again through the
// user-edit precedence rule, not through the state machine.
func (s SuggestionStatus) Terminal() bool {
	return s == SuggestionApplied || s == SuggestionRejected
}

// Suggestion is an AI-proposed replacement for an anchored span.
// Suggested is the only creation state; accepting replaces the anchored
// span's text with ProposedText, rejecting leaves text untouched.
type Suggestion struct {
	ID           string           `json:"id"`
	Anchor       Anchor           `json:"anchor"`
	OriginalText string           `json:"original_text"`
	ProposedText string           `json:"proposed_text"`
	Reason       string           `json:"reason,omitempty"`
	Status       SuggestionStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}

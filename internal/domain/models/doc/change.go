package doc

import "time"

// ChangeKind classifies an audit-log entry.
type ChangeKind string

const (
	ChangeVerified    ChangeKind = "verified"
	ChangeModified    ChangeKind = "modified"
	ChangeAISuggested ChangeKind = "ai_suggested"
	ChangeAIApplied   ChangeKind = "ai_applied"
	ChangeRejected    ChangeKind = "rejected"
)

// ChangeRecord is one append-only entry in a block's audit log - the durable
// "track changes" trail surfaced to the user. Records are never edited or
// pruned within a session.
type ChangeRecord struct {
	ID           string     `json:"id"`
	BlockID      string     `json:"block_id"`
	Timestamp    time.Time  `json:"timestamp"`
	Kind         ChangeKind `json:"kind"`
	OriginalText string     `json:"original_text"`
	ModifiedText string     `json:"modified_text"`
	Reason       string     `json:"reason,omitempty"`
	Actor        string     `json:"actor"`
}

package doc

import "encoding/json"

// InlineSegment is the legacy flat-storage representation of a formatted
// text span.
type InlineSegment struct {
	Text      string `json:"text"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Code      bool   `json:"code,omitempty"`
}

// LegacyFormatting is the block-level formatting bag some legacy payloads
// carry instead of per-segment flags.
type LegacyFormatting struct {
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
	Code      bool `json:"code,omitempty"`
}

// BlockMetadata is the legacy flat document format kept for backward
// compatibility with non-tree-based storage. Content is a union shape:
// a plain string, an array of InlineSegments, or an object wrapping either.
// Nothing outside the synchronization engine's import boundary may branch on
// the raw shape - it is normalized to TextRun form immediately on ingest.
type BlockMetadata struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Content     json.RawMessage   `json:"content"`
	Level       *int              `json:"level,omitempty"`
	Formatting  *LegacyFormatting `json:"formatting,omitempty"`
	IndentLevel *int              `json:"indent_level,omitempty"`
	SectionKey  string            `json:"section_key,omitempty"`
}

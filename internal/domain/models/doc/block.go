package doc

// BlockKind identifies the structural type of a block.
type BlockKind string

const (
	KindParagraph    BlockKind = "paragraph"
	KindHeading      BlockKind = "heading"
	KindBulletedList BlockKind = "bulleted_list"
	KindNumberedList BlockKind = "numbered_list"
	KindCode         BlockKind = "code"
	KindQuote        BlockKind = "quote"
	KindDivider      BlockKind = "divider"
	KindImage        BlockKind = "image"
	KindEmptyLine    BlockKind = "empty_line"
	KindTable        BlockKind = "table"
)

// AIStatus is the AI-suggestion overlay carried by a run.
type AIStatus string

const (
	AIStatusNone      AIStatus = ""
	AIStatusSuggested AIStatus = "suggested"
	AIStatusApplied   AIStatus = "applied"
	AIStatusRejected  AIStatus = "rejected"
)

// TextRun is an inline span of text with a uniform formatting set and two
// independent annotation overlays (AI status and comment ids). A run's text
// is never empty except for a lone run representing an otherwise-empty block.
type TextRun struct {
	Text      string   `json:"text"`
	Bold      bool     `json:"bold,omitempty"`
	Italic    bool     `json:"italic,omitempty"`
	Underline bool     `json:"underline,omitempty"`
	Code      bool     `json:"code,omitempty"`
	AIStatus  AIStatus `json:"ai_status,omitempty"`
	// CommentIDs holds the ids of every comment anchored to this run.
	// Treated as a set: no duplicates, order not significant.
	CommentIDs []string `json:"comment_ids,omitempty"`
	// UserEdited marks content the user changed by hand after an AI pass.
	// For display purposes it always wins over AIStatus.
	UserEdited bool `json:"user_edited,omitempty"`
}

// DisplayStatus returns the AI status the UI should color this run with.
// A manual user edit must never be mistaken for a pending or rejected AI
// change, so UserEdited takes precedence over any AI status.
func (r TextRun) DisplayStatus() AIStatus {
	if r.UserEdited {
		return AIStatusNone
	}
	return r.AIStatus
}

// HasComment reports whether the given comment id is attached to this run.
func (r TextRun) HasComment(id string) bool {
	for _, c := range r.CommentIDs {
		if c == id {
			return true
		}
	}
	return false
}

// AddComment attaches a comment id, preserving set semantics.
func (r *TextRun) AddComment(id string) {
	if !r.HasComment(id) {
		r.CommentIDs = append(r.CommentIDs, id)
	}
}

// RemoveComment detaches a comment id. Removing an absent id is a no-op.
func (r *TextRun) RemoveComment(id string) {
	out := r.CommentIDs[:0]
	for _, c := range r.CommentIDs {
		if c != id {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		r.CommentIDs = nil
		return
	}
	r.CommentIDs = out
}

// SameStyle reports whether two runs share formatting and annotation state,
// which makes them mergeable when adjacent.
func (r TextRun) SameStyle(o TextRun) bool {
	if r.Bold != o.Bold || r.Italic != o.Italic || r.Underline != o.Underline || r.Code != o.Code {
		return false
	}
	if r.AIStatus != o.AIStatus || r.UserEdited != o.UserEdited {
		return false
	}
	if len(r.CommentIDs) != len(o.CommentIDs) {
		return false
	}
	for _, id := range r.CommentIDs {
		if !o.HasComment(id) {
			return false
		}
	}
	return true
}

// Block is an ordered tree node of the document. Its id is stable and
// caller-assigned: a block's kind may change over its lifetime, its id must
// not. Non-text kinds (divider, image, empty line) never own runs.
type Block struct {
	ID   string    `json:"id"`
	Kind BlockKind `json:"kind"`
	// Level is the heading level (1-3); zero for non-heading kinds.
	Level       int       `json:"level,omitempty"`
	Runs        []TextRun `json:"runs,omitempty"`
	Children    []*Block  `json:"children,omitempty"`
	IndentLevel int       `json:"indent_level,omitempty"`
	// SectionKey is a stable semantic anchor independent of position.
	SectionKey string `json:"section_key,omitempty"`
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := *b
	if b.Runs != nil {
		out.Runs = make([]TextRun, len(b.Runs))
		for i, r := range b.Runs {
			out.Runs[i] = r
			if r.CommentIDs != nil {
				out.Runs[i].CommentIDs = append([]string(nil), r.CommentIDs...)
			}
		}
	}
	if b.Children != nil {
		out.Children = make([]*Block, len(b.Children))
		for i, c := range b.Children {
			out.Children[i] = c.Clone()
		}
	}
	return &out
}

// FindBlock searches blocks (and their children, depth-first) for an id.
func FindBlock(blocks []*Block, id string) *Block {
	for _, b := range blocks {
		if b.ID == id {
			return b
		}
		if found := FindBlock(b.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// CollectIDs returns every block id in document order, recursing into
// children.
func CollectIDs(blocks []*Block) []string {
	var ids []string
	var walk func(bs []*Block)
	walk = func(bs []*Block) {
		for _, b := range bs {
			ids = append(ids, b.ID)
			walk(b.Children)
		}
	}
	walk(blocks)
	return ids
}

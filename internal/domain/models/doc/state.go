package doc

import "time"

// DocState is the persistable snapshot of a whole document - the
// serialization boundary to and from the review backend. Exporting the same
// live tree twice without intervening edits yields byte-identical DocStates.
type DocState struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Version   int       `json:"version"`
	Blocks    []*Block  `json:"blocks"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Clone returns a deep copy of the state.
func (s *DocState) Clone() *DocState {
	if s == nil {
		return nil
	}
	out := *s
	out.Blocks = make([]*Block, len(s.Blocks))
	for i, b := range s.Blocks {
		out.Blocks[i] = b.Clone()
	}
	return &out
}

package annotation

import (
	"docasst/internal/domain/models/doc"
)

// Load seeds the engine with persisted annotation state when a document is
// reopened. Expected to run once, right after construction, before any
// operation touches the engine. Records must arrive oldest first; they keep
// their stored ids and timestamps.
func (e *Engine) Load(comments []*doc.Comment, suggestions []*doc.Suggestion, records []doc.ChangeRecord) {
	for _, c := range comments {
		e.comments = append(e.comments, c)
		e.commentByID[c.ID] = c
		for _, reply := range c.Replies {
			e.commentByID[reply.ID] = reply
		}
	}
	for _, s := range suggestions {
		e.suggestions = append(e.suggestions, s)
		e.suggByID[s.ID] = s
	}
	for _, r := range records {
		e.changeLog[r.BlockID] = append(e.changeLog[r.BlockID], r)
	}
	e.logger.Debug("annotation state loaded",
		"comments", len(comments),
		"suggestions", len(suggestions),
		"records", len(records),
	)
}

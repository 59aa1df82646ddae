package annotation

import (
	"fmt"
	"sort"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
)

// appendRecord stamps and appends an audit record. The log is append-only:
// records are never edited or removed, a correction shows up as a newer
// record for the same block.
func (e *Engine) appendRecord(record doc.ChangeRecord) {
	record.ID = e.newID()
	record.Timestamp = e.now()
	e.changeLog[record.BlockID] = append(e.changeLog[record.BlockID], record)
	if e.hooks.RecordLogged != nil {
		e.hooks.RecordLogged(record)
	}
}

// ChangeLog returns the audit records for one block, oldest first.
func (e *Engine) ChangeLog(blockID string) []doc.ChangeRecord {
	return append([]doc.ChangeRecord(nil), e.changeLog[blockID]...)
}

// AllRecords returns every audit record across blocks, oldest first.
func (e *Engine) AllRecords() []doc.ChangeRecord {
	var all []doc.ChangeRecord
	for _, records := range e.changeLog {
		all = append(all, records...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all
}

// MarkVerified records that a human reviewed a block and signed off on its
// current content. The text is unchanged, so original and modified carry the
// same snapshot.
func (e *Engine) MarkVerified(blockID, actor string) error {
	container := e.tree.FindContainer(blockID)
	if container == nil {
		return fmt.Errorf("block %s: %w", blockID, domain.ErrNotFound)
	}
	text := livetree.FlattenText(container)
	e.appendRecord(doc.ChangeRecord{
		BlockID:      blockID,
		Kind:         doc.ChangeVerified,
		OriginalText: text,
		ModifiedText: text,
		Actor:        actor,
	})
	e.logger.Info("block verified", "block_id", blockID, "actor", actor)
	return nil
}

package docsync

import (
	"fmt"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
)

// TurnInto converts the block containing target to a new kind, preserving
// the block's id and reflowing its content:
//
//   - converting into a list wraps the current flattened text as a single
//     new list item rather than transferring raw children;
//   - converting between text kinds transfers the existing children onto
//     the new container unchanged;
//   - converting a non-text block into a text kind synthesizes one empty
//     text run, since there are no children to transfer;
//   - converting into a non-text kind drops the children, as those kinds
//     may own none.
//
// The swap happens in a single tree mutation and the selection lands at the
// start of the transferred content. With no resolvable block ancestor the
// operation is a no-op and the selection is left untouched
// (domain.ErrInvalidConversionTarget).
func (e *Engine) TurnInto(t *livetree.Tree, target *livetree.Node, kind doc.BlockKind, level int) error {
	caps, err := e.kinds.Get(kind)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if caps.MaxLevel > 0 {
		if level < 1 || level > caps.MaxLevel {
			return fmt.Errorf("%w: level %d out of range for %s", domain.ErrValidation, level, kind)
		}
	} else {
		level = 0
	}

	container := target.ContainerAncestor(t.Root())
	if container == nil || container.Parent() == nil {
		return domain.ErrInvalidConversionTarget
	}
	parent := container.Parent()

	blockID := container.BlockID()
	text := ""
	if e.kinds.IsText(container.Kind()) {
		text = livetree.FlattenText(container)
	}

	replacement := livetree.NewContainer(blockID, kind)
	replacement.SetLevel(level)
	replacement.SetIndentLevel(container.IndentLevel())
	replacement.SetSectionKey(container.SectionKey())

	return t.Update(livetree.OriginProgrammatic, func() error {
		switch {
		case caps.Container:
			// Wrap the captured text as one fresh list item. The item gets
			// a new id; the converted block keeps its own.
			item := livetree.NewContainer(e.newID(), doc.KindParagraph)
			item.AppendChild(livetree.NewText(doc.TextRun{Text: text}))
			replacement.AppendChild(item)
		case caps.Text:
			children := container.Children()
			if len(children) == 0 || !e.kinds.IsText(container.Kind()) {
				replacement.AppendChild(livetree.NewText(doc.TextRun{}))
			} else {
				for _, c := range children {
					replacement.AppendChild(c)
				}
			}
		default:
			// Non-text target: divider, image, empty line. No children.
		}

		if !parent.ReplaceChild(container, replacement) {
			return domain.ErrInvalidConversionTarget
		}
		e.placeCursorAtStart(t, replacement)
		return nil
	})
}

// placeCursorAtStart collapses the selection to the start of the node's
// transferred content.
func (e *Engine) placeCursorAtStart(t *livetree.Tree, n *livetree.Node) {
	if texts := livetree.TextNodes(n); len(texts) > 0 {
		t.CollapseTo(livetree.Point{Node: texts[0], Offset: 0})
		return
	}
	t.CollapseTo(livetree.Point{Node: n, Offset: 0})
}

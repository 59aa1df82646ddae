package annotation

import (
	"strings"

	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
)

// onTransaction attributes committed transactions. Direct edits are diffed
// against the baseline: changed blocks get a "modified" audit record, and
// changed runs that carried an AI status are flipped to user-edited so a
// manual correction never renders as an AI change. Undo/redo transactions
// refresh the baseline without logging - logging them would double-count
// the original edit. Programmatic transactions (imports, suggestion
// application) log through their own explicit paths.
func (e *Engine) onTransaction(origin livetree.Origin) {
	if origin != livetree.OriginDirect {
		e.resetBaseline()
		return
	}

	for _, container := range e.tree.Blocks() {
		blockID := container.BlockID()
		nodes := livetree.TextNodes(container)
		texts := make([]string, len(nodes))
		for i, n := range nodes {
			texts[i] = n.Text()
		}

		old, known := e.baseline[blockID]
		if known && !stringsEqual(old, texts) {
			e.markUserEditedRuns(nodes, old, texts)
			e.appendRecord(doc.ChangeRecord{
				BlockID:      blockID,
				Kind:         doc.ChangeModified,
				OriginalText: strings.Join(old, ""),
				ModifiedText: strings.Join(texts, ""),
				Actor:        "user",
			})
		}
	}
	e.resetBaseline()
}

// markUserEditedRuns flags runs whose text changed and which carried an AI
// status. The flag clears the status: user-edit precedence.
func (e *Engine) markUserEditedRuns(nodes []*livetree.Node, old, cur []string) {
	for i, n := range nodes {
		if i < len(old) && old[i] == cur[i] {
			continue
		}
		if n.Run().AIStatus != doc.AIStatusNone {
			n.MarkUserEdited()
		}
	}
}

// resetBaseline re-captures every block's run texts.
func (e *Engine) resetBaseline() {
	e.baseline = make(map[string][]string)
	for _, container := range e.tree.Blocks() {
		nodes := livetree.TextNodes(container)
		texts := make([]string, len(nodes))
		for i, n := range nodes {
			texts[i] = n.Text()
		}
		e.baseline[container.BlockID()] = texts
	}
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package ai

import (
	"strings"

	"docasst/internal/domain/models/doc"
)

// SystemPrompt constrains the model to the machine-readable edit format the
// suggester parses. Shared across providers.
const SystemPrompt = `You are an editing assistant for a block-structured document.
You will receive the document's blocks, each prefixed with its block id in square brackets, followed by an instruction.

Respond with ONLY a JSON array of edit objects, no prose before or after:
[{"block_id": "...", "original_text": "...", "proposed_text": "...", "reason": "..."}]

Rules:
- original_text must be copied verbatim from the block it targets, so the edit can be located later.
- proposed_text is the replacement for original_text.
- Keep original_text as short as possible while still unique within its block.
- Only propose edits the instruction asks for. An empty array is a valid answer.`

// BuildPrompt renders the request as the user message: each block's id and
// flattened text, then the instruction.
func BuildPrompt(req SuggestRequest) string {
	var b strings.Builder
	b.WriteString("Document blocks:\n\n")
	for _, block := range req.Blocks {
		text := doc.FlattenText(block)
		if text == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(block.ID)
		b.WriteString("]\n")
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	b.WriteString("Instruction: ")
	b.WriteString(req.Instruction)
	return b.String()
}

// blockIDs collects the ids present in a snapshot, for filtering edits that
// reference blocks the model invented.
func blockIDs(blocks []*doc.Block) map[string]struct{} {
	ids := make(map[string]struct{})
	var walk func([]*doc.Block)
	walk = func(bs []*doc.Block) {
		for _, b := range bs {
			ids[b.ID] = struct{}{}
			walk(b.Children)
		}
	}
	walk(blocks)
	return ids
}

package docsync

import (
	"encoding/json"
	"fmt"
	"strings"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
)

// legacyKinds maps the flat format's type strings (several generations of
// them) onto block kinds. Heading aliases carry an implied level.
var legacyKinds = map[string]struct {
	kind  doc.BlockKind
	level int
}{
	"paragraph":     {doc.KindParagraph, 0},
	"text":          {doc.KindParagraph, 0},
	"heading":       {doc.KindHeading, 0}, // level comes from the level field
	"h1":            {doc.KindHeading, 1},
	"h2":            {doc.KindHeading, 2},
	"h3":            {doc.KindHeading, 3},
	"heading_1":     {doc.KindHeading, 1},
	"heading_2":     {doc.KindHeading, 2},
	"heading_3":     {doc.KindHeading, 3},
	"bulleted_list": {doc.KindBulletedList, 0},
	"bulleted-list": {doc.KindBulletedList, 0},
	"bullet":        {doc.KindBulletedList, 0},
	"numbered_list": {doc.KindNumberedList, 0},
	"numbered-list": {doc.KindNumberedList, 0},
	"number":        {doc.KindNumberedList, 0},
	"code":          {doc.KindCode, 0},
	"quote":         {doc.KindQuote, 0},
	"divider":       {doc.KindDivider, 0},
	"image":         {doc.KindImage, 0},
	"empty":         {doc.KindEmptyLine, 0},
	"empty_line":    {doc.KindEmptyLine, 0},
	"table":         {doc.KindTable, 0},
}

// legacyContentObject is the object variant of the legacy content union.
type legacyContentObject struct {
	Text     *string             `json:"text,omitempty"`
	Segments []doc.InlineSegment `json:"segments,omitempty"`
}

// FromLegacy normalizes a flat BlockMetadata payload into model blocks.
// This is the only place that branches on the legacy union shapes (plain
// string, segment array, wrapping object); everything downstream sees
// TextRun form only. Entries indented deeper than a preceding container are
// reattached as its children, reconstructing list nesting from the flat
// storage.
func (e *Engine) FromLegacy(metas []doc.BlockMetadata) ([]*doc.Block, error) {
	var top []*doc.Block

	type frame struct {
		block  *doc.Block
		indent int
	}
	var stack []frame

	for i, meta := range metas {
		b, err := e.legacyBlock(meta)
		if err != nil {
			return nil, fmt.Errorf("legacy block %d (%s): %w", i, meta.ID, err)
		}

		indent := 0
		if meta.IndentLevel != nil {
			indent = *meta.IndentLevel
		}

		// Pop containers the entry is not nested under.
		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			parent := stack[len(stack)-1].block
			parent.Children = append(parent.Children, b)
		} else {
			top = append(top, b)
		}
		if e.kinds.IsContainer(b.Kind) {
			stack = append(stack, frame{block: b, indent: indent})
		}
	}
	return top, nil
}

func (e *Engine) legacyBlock(meta doc.BlockMetadata) (*doc.Block, error) {
	mapping, ok := legacyKinds[strings.ToLower(strings.TrimSpace(meta.Type))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown legacy type %q", domain.ErrValidation, meta.Type)
	}

	b := &doc.Block{
		ID:         meta.ID,
		Kind:       mapping.kind,
		Level:      mapping.level,
		SectionKey: meta.SectionKey,
	}
	if meta.IndentLevel != nil && *meta.IndentLevel > 0 {
		b.IndentLevel = *meta.IndentLevel
	}
	if b.Kind == doc.KindHeading && b.Level == 0 {
		b.Level = 1
		if meta.Level != nil {
			b.Level = clampLevel(*meta.Level)
		}
	}

	if !e.kinds.IsText(b.Kind) {
		return b, nil
	}

	runs, err := e.legacyRuns(meta)
	if err != nil {
		return nil, err
	}
	b.Runs = doc.MergeRuns(runs)
	if b.Runs == nil {
		b.Runs = []doc.TextRun{{}}
	}
	return b, nil
}

// legacyRuns decodes the content union in order of likelihood: plain
// string, segment array, then the wrapping object.
func (e *Engine) legacyRuns(meta doc.BlockMetadata) ([]doc.TextRun, error) {
	raw := meta.Content
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []doc.TextRun{e.runFromString(s, meta.Formatting)}, nil
	}

	var segs []doc.InlineSegment
	if err := json.Unmarshal(raw, &segs); err == nil {
		return e.runsFromSegments(segs), nil
	}

	var obj legacyContentObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		if len(obj.Segments) > 0 {
			return e.runsFromSegments(obj.Segments), nil
		}
		if obj.Text != nil {
			return []doc.TextRun{e.runFromString(*obj.Text, meta.Formatting)}, nil
		}
		return nil, nil
	}

	return nil, fmt.Errorf("%w: unrecognized legacy content shape", domain.ErrValidation)
}

func (e *Engine) runFromString(s string, f *doc.LegacyFormatting) doc.TextRun {
	run := doc.TextRun{Text: e.sanitizeText(s)}
	if f != nil {
		run.Bold, run.Italic, run.Underline, run.Code = f.Bold, f.Italic, f.Underline, f.Code
	}
	return run
}

func (e *Engine) runsFromSegments(segs []doc.InlineSegment) []doc.TextRun {
	runs := make([]doc.TextRun, 0, len(segs))
	for _, seg := range segs {
		runs = append(runs, doc.TextRun{
			Text:      e.sanitizeText(seg.Text),
			Bold:      seg.Bold,
			Italic:    seg.Italic,
			Underline: seg.Underline,
			Code:      seg.Code,
		})
	}
	return runs
}

// sanitizeText strips embedded markup from legacy content. Plain text is
// passed through untouched so entity escaping cannot corrupt it.
func (e *Engine) sanitizeText(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	return e.sanitizer.Sanitize(s)
}

// ToLegacy flattens model blocks into the legacy BlockMetadata format.
// Children are emitted as consecutive entries with a deeper indent level,
// which FromLegacy reverses.
func (e *Engine) ToLegacy(blocks []*doc.Block) ([]doc.BlockMetadata, error) {
	var out []doc.BlockMetadata
	var walk func(bs []*doc.Block, indent int) error
	walk = func(bs []*doc.Block, indent int) error {
		for _, b := range bs {
			meta, err := e.legacyMeta(b, indent)
			if err != nil {
				return err
			}
			out = append(out, meta)
			if err := walk(b.Children, indent+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(blocks, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) legacyMeta(b *doc.Block, indent int) (doc.BlockMetadata, error) {
	meta := doc.BlockMetadata{
		ID:         b.ID,
		Type:       string(b.Kind),
		SectionKey: b.SectionKey,
	}
	if b.Kind == doc.KindHeading {
		level := b.Level
		meta.Level = &level
	}
	if indent == 0 && b.IndentLevel > 0 {
		indent = b.IndentLevel
	}
	if indent > 0 {
		meta.IndentLevel = &indent
	}

	if e.kinds.IsText(b.Kind) {
		segs := make([]doc.InlineSegment, 0, len(b.Runs))
		for _, r := range b.Runs {
			segs = append(segs, doc.InlineSegment{
				Text:      r.Text,
				Bold:      r.Bold,
				Italic:    r.Italic,
				Underline: r.Underline,
				Code:      r.Code,
			})
		}
		raw, err := json.Marshal(segs)
		if err != nil {
			return meta, fmt.Errorf("marshal legacy content: %w", err)
		}
		meta.Content = raw
	}
	return meta, nil
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 3 {
		return 3
	}
	return level
}

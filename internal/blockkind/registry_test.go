package blockkind

import (
	"errors"
	"testing"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return r
}

func TestRegistryCapabilities(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		kind          doc.BlockKind
		wantText      bool
		wantContainer bool
	}{
		{doc.KindParagraph, true, false},
		{doc.KindHeading, true, false},
		{doc.KindBulletedList, true, true},
		{doc.KindNumberedList, true, true},
		{doc.KindCode, true, false},
		{doc.KindQuote, true, false},
		{doc.KindDivider, false, false},
		{doc.KindImage, false, false},
		{doc.KindEmptyLine, false, false},
		{doc.KindTable, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := r.IsText(tt.kind); got != tt.wantText {
				t.Errorf("IsText(%s) = %v, want %v", tt.kind, got, tt.wantText)
			}
			if got := r.IsContainer(tt.kind); got != tt.wantContainer {
				t.Errorf("IsContainer(%s) = %v, want %v", tt.kind, got, tt.wantContainer)
			}
		})
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.Get("marquee"); err == nil {
		t.Error("Get() expected error for unknown kind")
	}
	if r.IsText("marquee") {
		t.Error("IsText() should be false for unknown kind")
	}
}

func TestValidateBlock(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name    string
		block   *doc.Block
		wantErr bool
	}{
		{
			name:    "valid paragraph",
			block:   &doc.Block{ID: "p1", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "hi"}}},
			wantErr: false,
		},
		{
			name:    "valid heading level 2",
			block:   &doc.Block{ID: "h1", Kind: doc.KindHeading, Level: 2, Runs: []doc.TextRun{{Text: "hi"}}},
			wantErr: false,
		},
		{
			name:    "heading level out of range",
			block:   &doc.Block{ID: "h1", Kind: doc.KindHeading, Level: 4},
			wantErr: true,
		},
		{
			name:    "level on unleveled kind",
			block:   &doc.Block{ID: "p1", Kind: doc.KindParagraph, Level: 1},
			wantErr: true,
		},
		{
			name:    "runs on divider",
			block:   &doc.Block{ID: "d1", Kind: doc.KindDivider, Runs: []doc.TextRun{{Text: "hi"}}},
			wantErr: true,
		},
		{
			name: "children on leaf-only kind",
			block: &doc.Block{ID: "p1", Kind: doc.KindParagraph, Children: []*doc.Block{
				{ID: "c1", Kind: doc.KindParagraph},
			}},
			wantErr: true,
		},
		{
			name: "invalid nested child",
			block: &doc.Block{ID: "l1", Kind: doc.KindBulletedList, Children: []*doc.Block{
				{ID: "c1", Kind: doc.KindHeading, Level: 9},
			}},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			block:   &doc.Block{ID: "x1", Kind: "marquee"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateBlock(tt.block)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ValidateBlock() expected error, got nil")
				}
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("ValidateBlock() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateBlock() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateBlocksIDUniqueness(t *testing.T) {
	r := newTestRegistry(t)

	dup := []*doc.Block{
		{ID: "a", Kind: doc.KindParagraph},
		{ID: "list", Kind: doc.KindBulletedList, Children: []*doc.Block{
			{ID: "a", Kind: doc.KindParagraph},
		}},
	}
	if err := r.ValidateBlocks(dup); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("duplicate id across nesting: error = %v, want ErrValidation", err)
	}

	empty := []*doc.Block{{ID: "", Kind: doc.KindParagraph}}
	if err := r.ValidateBlocks(empty); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty id: error = %v, want ErrValidation", err)
	}

	ok := []*doc.Block{
		{ID: "a", Kind: doc.KindParagraph},
		{ID: "b", Kind: doc.KindParagraph},
	}
	if err := r.ValidateBlocks(ok); err != nil {
		t.Errorf("valid list: unexpected error %v", err)
	}
}

func TestListSorted(t *testing.T) {
	r := newTestRegistry(t)

	kinds := r.List()
	if len(kinds) != 10 {
		t.Fatalf("List() returned %d kinds, want 10", len(kinds))
	}
	for i := 1; i < len(kinds); i++ {
		if kinds[i-1].Kind >= kinds[i].Kind {
			t.Fatalf("List() not sorted: %s before %s", kinds[i-1].Kind, kinds[i].Kind)
		}
	}
}

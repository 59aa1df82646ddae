package anthropic

import (
	"testing"
)

func TestNewProviderRequiresConfig(t *testing.T) {
	if _, err := NewProvider("", "claude-sonnet-4-5"); err == nil {
		t.Error("NewProvider() with empty key expected error")
	}
	if _, err := NewProvider("sk-test", ""); err == nil {
		t.Error("NewProvider() with empty model expected error")
	}
	if _, err := NewProvider("sk-test", "claude-sonnet-4-5"); err != nil {
		t.Errorf("NewProvider() unexpected error: %v", err)
	}
}

func TestParseEdits(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr bool
	}{
		{
			name: "bare array",
			text: `[{"block_id":"b1","original_text":"a","proposed_text":"b"}]`,
			want: 1,
		},
		{
			name: "array wrapped in code fence",
			text: "```json\n[{\"block_id\":\"b1\",\"original_text\":\"a\",\"proposed_text\":\"b\"}]\n```",
			want: 1,
		},
		{
			name: "array wrapped in prose",
			text: `Here are the edits: [{"block_id":"b1","original_text":"a","proposed_text":"b"},{"block_id":"b2","original_text":"c","proposed_text":"d"}] Let me know.`,
			want: 2,
		},
		{
			name: "empty array",
			text: `[]`,
			want: 0,
		},
		{
			name:    "no array at all",
			text:    "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "malformed json",
			text:    `[{"block_id": }]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edits, err := parseEdits(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseEdits() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEdits() unexpected error: %v", err)
			}
			if len(edits) != tt.want {
				t.Errorf("parseEdits() = %d edits, want %d", len(edits), tt.want)
			}
			if tt.want > 0 && edits[0].BlockID != "b1" {
				t.Errorf("first edit block = %q, want b1", edits[0].BlockID)
			}
		})
	}
}

package mathpreview

import "testing"

func TestDocument_OffsetToPosition(t *testing.T) {
	doc := NewDocument("test", "v1", "ab\ncde\n\nf")

	tests := []struct {
		offset int
		want   Position
	}{
		{0, Position{0, 0}},
		{1, Position{0, 1}},
		{2, Position{0, 2}}, // the newline itself
		{3, Position{1, 0}},
		{5, Position{1, 2}},
		{7, Position{2, 0}}, // empty line
		{8, Position{3, 0}},
		{9, Position{3, 1}},   // end of text
		{-5, Position{0, 0}},  // clamped low
		{100, Position{3, 1}}, // clamped high
	}

	for _, tt := range tests {
		if got := doc.OffsetToPosition(tt.offset); got != tt.want {
			t.Errorf("OffsetToPosition(%d) = %+v, want %+v", tt.offset, got, tt.want)
		}
	}
}

func TestDocument_PositionToOffset(t *testing.T) {
	doc := NewDocument("test", "v1", "ab\ncde\n\nf")

	tests := []struct {
		pos  Position
		want int
	}{
		{Position{0, 0}, 0},
		{Position{1, 0}, 3},
		{Position{1, 2}, 5},
		{Position{1, 99}, 6},  // clamped to line end
		{Position{3, 1}, 9},   // end of text
		{Position{-1, 0}, 0},  // clamped low
		{Position{99, 0}, 9},  // clamped high
		{Position{2, -4}, 7},  // negative col clamped to line start
	}

	for _, tt := range tests {
		if got := doc.PositionToOffset(tt.pos); got != tt.want {
			t.Errorf("PositionToOffset(%+v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	doc := NewDocument("test", "v1", "first\nsecond line\nthird")

	for offset := 0; offset <= len(doc.Text()); offset++ {
		pos := doc.OffsetToPosition(offset)
		if back := doc.PositionToOffset(pos); back != offset {
			t.Errorf("round trip of offset %d via %+v = %d", offset, pos, back)
		}
	}
}

func TestDocument_Accessors(t *testing.T) {
	doc := NewDocument("notes.org", "abc123", "body")
	if doc.ID() != "notes.org" {
		t.Errorf("ID = %q, want notes.org", doc.ID())
	}
	if doc.Version() != "abc123" {
		t.Errorf("Version = %q, want abc123", doc.Version())
	}
	if doc.Text() != "body" {
		t.Errorf("Text = %q, want body", doc.Text())
	}
}

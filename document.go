package mathpreview

import "sort"

// Position is a zero-based line/column pair in document text.
type Position struct {
	Line int
	Col  int
}

// Document is an immutable snapshot of editor text.
//
// ID identifies the document across edits (typically its file path); Version
// identifies one snapshot of its content. Any edit must produce a new
// Version, since per-version derived state (fragments, settings, equation
// numbering) is cached against it and discarded wholesale when it changes.
type Document struct {
	id         string
	version    string
	text       string
	lineStarts []int
}

// NewDocument wraps a text snapshot for rendering.
func NewDocument(id, version, text string) *Document {
	return &Document{
		id:         id,
		version:    version,
		text:       text,
		lineStarts: computeLineStarts(text),
	}
}

// ID returns the document identity (stable across edits).
func (d *Document) ID() string { return d.id }

// Version returns the snapshot identity.
func (d *Document) Version() string { return d.version }

// Text returns the full document text.
func (d *Document) Text() string { return d.text }

// OffsetToPosition converts an absolute offset to a line/column position.
// Out-of-range offsets are clamped to the document bounds.
func (d *Document) OffsetToPosition(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	// First line start greater than offset; the line is the one before it.
	line := sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1
	return Position{Line: line, Col: offset - d.lineStarts[line]}
}

// PositionToOffset converts a line/column position to an absolute offset.
// Out-of-range positions are clamped to the document bounds.
func (d *Document) PositionToOffset(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(d.lineStarts) {
		return len(d.text)
	}
	offset := d.lineStarts[p.Line] + p.Col
	end := len(d.text)
	if p.Line+1 < len(d.lineStarts) {
		end = d.lineStarts[p.Line+1] - 1
	}
	if offset < d.lineStarts[p.Line] {
		offset = d.lineStarts[p.Line]
	}
	if offset > end {
		offset = end
	}
	return offset
}

// computeLineStarts returns the offset of the first byte of every line.
// Index 0 is always present, so every offset maps to some line.
func computeLineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

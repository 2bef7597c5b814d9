package mathpreview

import (
	"fmt"
	"time"
)

// FragmentKind classifies how a math fragment is delimited.
type FragmentKind int

// Fragment kinds, in increasing dedup priority (environments win overlaps).
const (
	KindInline FragmentKind = iota
	KindDisplay
	KindEnvironment
)

// String returns a short lowercase name for the kind.
func (k FragmentKind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindDisplay:
		return "display"
	case KindEnvironment:
		return "environment"
	}
	return fmt.Sprintf("FragmentKind(%d)", int(k))
}

// Span is the exact extent of a fragment in document text.
// Offsets are absolute byte counts and serve as the stable identity of a
// fragment within one document version. Line and columns refer to the start
// and end positions (EndCol is on the end line for multi-line fragments).
type Span struct {
	Line        int
	StartCol    int
	EndCol      int
	StartOffset int
	EndOffset   int
}

// Contains reports whether offset falls inside the half-open span range.
func (s Span) Contains(offset int) bool {
	return offset >= s.StartOffset && offset < s.EndOffset
}

// Overlaps reports whether two half-open span ranges intersect.
func (s Span) Overlaps(other Span) bool {
	return s.StartOffset < other.EndOffset && other.StartOffset < s.EndOffset
}

// Fragment is one occurrence of math markup in document text.
type Fragment struct {
	RawText         string       // full matched text including delimiters
	Content         string       // math body without delimiters
	Kind            FragmentKind // inline, display, or environment
	EnvironmentName string       // set only for KindEnvironment (may end in "*")
	IsNumbered      bool         // environment takes an equation number
	Span            Span
}

// Variant selects the color scheme of rendered output.
type Variant int

// Color scheme variants.
const (
	Light Variant = iota
	Dark
)

// String returns the canonical variant name used in cache keys and filenames.
func (v Variant) String() string {
	if v == Dark {
		return "dark"
	}
	return "light"
}

// fileSuffix is the artifact filename suffix for the variant ("" for light).
func (v Variant) fileSuffix() string {
	if v == Dark {
		return "-dark"
	}
	return ""
}

// DocumentSettings is the per-document rendering context extracted from
// header directives. Identical for every fragment of one document version.
type DocumentSettings struct {
	ExtraPackages  []string // order-preserving, deduplicated against the base set
	CustomPreamble string   // concatenated raw header declarations, "" if none
}

// RenderResult is a successfully rendered fragment artifact.
type RenderResult struct {
	Fragment       Fragment
	Key            string // content-addressed cache key
	ImagePath      string // primary artifact (SVG when the vector pipeline ran)
	FallbackPath   string // raster fallback artifact, "" if unused
	EquationNumber int    // 1-based, 0 when the fragment is unnumbered
	FromCache      bool
	CreatedAt      time.Time
}

// RenderError is a structured render failure. It always carries the
// fragment's raw source and the toolchain diagnostic so callers have
// something actionable to display.
type RenderError struct {
	Fragment   Fragment
	Diagnostic string // compiler/converter output, may be multi-line
	Err        error  // sentinel classifying the failure
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("rendering %q: %v", e.Fragment.RawText, e.Err)
	}
	return fmt.Sprintf("rendering %q: %v: %s", e.Fragment.RawText, e.Err, e.Diagnostic)
}

// Unwrap exposes the sentinel for errors.Is dispatch.
func (e *RenderError) Unwrap() error {
	return e.Err
}

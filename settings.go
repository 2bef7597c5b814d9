package mathpreview

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// basePackages are always loaded by the generated preview document.
// Extra packages extracted from header directives are deduplicated
// against this set to avoid duplicate-load errors.
var basePackages = []string{"amsmath", "amssymb", "amsfonts"}

// Header directive and \usepackage payload patterns.
var (
	headerDirective  = regexp.MustCompile(`(?i)^#\+latex_header:\s*(\S.*)$`)
	usepackageDecl   = regexp.MustCompile(`\\usepackage(?:\[[^\]]*\])?\{([^}]+)\}`)
	orgHeadingPrefix = regexp.MustCompile(`^\*+\s`)
)

// ExtractSettings scans document text for header declarations that affect
// every render: extra packages and custom preamble lines.
//
// Only lines before the first structural heading are considered. Malformed
// declarations are skipped silently; extraction is best-effort and never
// fails. Settings are computed once per document version, never per fragment.
func ExtractSettings(text string) DocumentSettings {
	header := text[:headingBoundary(text)]

	var settings DocumentSettings
	var preamble []string
	seen := make(map[string]bool, len(basePackages))
	for _, p := range basePackages {
		seen[p] = true
	}

	for _, line := range strings.Split(header, "\n") {
		m := headerDirective.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		decl := strings.TrimSpace(m[1])
		preamble = append(preamble, decl)

		pkg := usepackageDecl.FindStringSubmatch(decl)
		if pkg == nil {
			continue
		}
		for _, name := range strings.Split(pkg[1], ",") {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			settings.ExtraPackages = append(settings.ExtraPackages, name)
		}
	}

	settings.CustomPreamble = strings.Join(preamble, "\n")
	return settings
}

// headingBoundary returns the offset of the first structural heading line,
// or len(text) if the document has none.
//
// Markdown headings are located through the goldmark AST rather than a line
// regex so that "#" lines inside fenced code blocks are not mistaken for
// headings. Org-style "* " headings are also recognized since header
// directives follow the org convention.
func headingBoundary(text string) int {
	boundary := len(text)

	if off, ok := markdownHeadingOffset(text); ok && off < boundary {
		boundary = off
	}

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if orgHeadingPrefix.MatchString(line) && offset < boundary {
			boundary = offset
			break
		}
		offset += len(line)
	}

	return boundary
}

// markdownHeadingOffset returns the start-of-line offset of the first
// markdown heading (ATX or setext), if any.
func markdownHeadingOffset(text string) (int, bool) {
	src := []byte(text)
	root := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			continue
		}
		seg := heading.Lines().At(0)
		// The segment covers the heading text; rewind to the line start so
		// the "#" marker itself is past the boundary too.
		lineStart := strings.LastIndexByte(text[:seg.Start], '\n') + 1
		return lineStart, true
	}
	return 0, false
}

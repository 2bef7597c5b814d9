package mathpreview

import (
	"regexp"
	"sort"
	"strings"
)

// Precompiled fragment patterns. The dollar forms are refined with manual
// neighbor checks below because RE2 has no lookaround.
var (
	inlineDollar  = regexp.MustCompile(`\$([^$\n]+?)\$`)
	displayDollar = regexp.MustCompile(`\$\$(.+?)\$\$`)
	inlineParen   = regexp.MustCompile(`\\\((.+?)\\\)`)
	displayBrack  = regexp.MustCompile(`\\\[(.+?)\\\]`)
	beginEnv      = regexp.MustCompile(`\\begin\{([a-zA-Z]+\*?)\}`)
)

// numberedEnvironments are the base names that take an equation number
// (unless used in starred form).
var numberedEnvironments = map[string]bool{
	"equation": true,
	"align":    true,
	"gather":   true,
	"multline": true,
	"eqnarray": true,
	"alignat":  true,
	"flalign":  true,
}

// helperEnvironments are recognized math environments that never carry
// their own equation number.
var helperEnvironments = map[string]bool{
	"split":       true,
	"aligned":     true,
	"gathered":    true,
	"cases":       true,
	"matrix":      true,
	"pmatrix":     true,
	"bmatrix":     true,
	"Bmatrix":     true,
	"vmatrix":     true,
	"Vmatrix":     true,
	"smallmatrix": true,
}

// isMathEnvironment reports whether name (possibly starred) is in the
// allow-list of recognized math environments.
func isMathEnvironment(name string) bool {
	base := strings.TrimSuffix(name, "*")
	return numberedEnvironments[base] || helperEnvironments[base]
}

// isNumberedEnvironment reports whether name takes an equation number:
// a numbered base without the trailing star.
func isNumberedEnvironment(name string) bool {
	if strings.HasSuffix(name, "*") {
		return false
	}
	return numberedEnvironments[name]
}

// ScanFragments finds all math fragments in document text, ordered by
// ascending start offset with no overlapping spans.
//
// Scanning never fails: malformed or ambiguous markup simply produces no
// fragment. The result is deterministic for identical input text.
func ScanFragments(text string) []Fragment {
	lineStarts := computeLineStarts(text)

	var candidates []Fragment
	for lineNum, start := range lineStarts {
		end := len(text)
		if lineNum+1 < len(lineStarts) {
			end = lineStarts[lineNum+1] - 1
		}
		line := text[start:end]
		candidates = append(candidates, scanLine(line, lineNum, start)...)
	}
	candidates = append(candidates, scanEnvironments(text, lineStarts)...)

	return dedupeFragments(candidates)
}

// scanLine applies the single-line patterns to one line of text.
func scanLine(line string, lineNum, lineOffset int) []Fragment {
	var frags []Fragment

	for _, m := range displayDollar.FindAllStringSubmatchIndex(line, -1) {
		frags = append(frags, lineFragment(line, m, KindDisplay, lineNum, lineOffset))
	}
	// A rejected inline candidate must not consume its span: its closing
	// dollar may open a valid fragment later on the line, so matching
	// resumes just past the rejected opening dollar.
	for pos := 0; pos < len(line); {
		m := inlineDollar.FindStringSubmatchIndex(line[pos:])
		if m == nil {
			break
		}
		for i := range m {
			m[i] += pos
		}
		if !validInlineDollar(line, m) {
			pos = m[0] + 1
			continue
		}
		frags = append(frags, lineFragment(line, m, KindInline, lineNum, lineOffset))
		pos = m[1]
	}
	for _, m := range inlineParen.FindAllStringSubmatchIndex(line, -1) {
		frags = append(frags, lineFragment(line, m, KindInline, lineNum, lineOffset))
	}
	for _, m := range displayBrack.FindAllStringSubmatchIndex(line, -1) {
		frags = append(frags, lineFragment(line, m, KindDisplay, lineNum, lineOffset))
	}

	return frags
}

// validInlineDollar refines an inline $...$ regex match: the delimiters must
// not form part of a $$ pair, the opening dollar must not be escaped, and
// digit-led content is excluded as likely currency (a known source of false
// negatives: "$2x$" is never treated as math).
func validInlineDollar(line string, m []int) bool {
	start, end := m[0], m[1]
	if start > 0 && (line[start-1] == '$' || line[start-1] == '\\') {
		return false
	}
	if end < len(line) && line[end] == '$' {
		return false
	}
	content := line[m[2]:m[3]]
	if content[0] >= '0' && content[0] <= '9' {
		return false
	}
	return true
}

// lineFragment builds a Fragment from a single-line submatch index pair.
func lineFragment(line string, m []int, kind FragmentKind, lineNum, lineOffset int) Fragment {
	return Fragment{
		RawText: line[m[0]:m[1]],
		Content: strings.TrimSpace(line[m[2]:m[3]]),
		Kind:    kind,
		Span: Span{
			Line:        lineNum,
			StartCol:    m[0],
			EndCol:      m[1],
			StartOffset: lineOffset + m[0],
			EndOffset:   lineOffset + m[1],
		},
	}
}

// scanEnvironments applies the multi-line \begin{name}...\end{name} pass
// over the whole text. Only allow-listed math environments are kept; the
// closing delimiter is the nearest \end with a matching name.
func scanEnvironments(text string, lineStarts []int) []Fragment {
	var frags []Fragment
	for _, m := range beginEnv.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if !isMathEnvironment(name) {
			continue
		}
		closer := `\end{` + name + `}`
		rel := strings.Index(text[m[1]:], closer)
		if rel < 0 {
			continue
		}
		end := m[1] + rel + len(closer)
		startPos := positionAt(lineStarts, m[0])
		endPos := positionAt(lineStarts, end)
		frags = append(frags, Fragment{
			RawText:         text[m[0]:end],
			Content:         strings.TrimSpace(text[m[1] : m[1]+rel]),
			Kind:            KindEnvironment,
			EnvironmentName: name,
			IsNumbered:      isNumberedEnvironment(name),
			Span: Span{
				Line:        startPos.Line,
				StartCol:    startPos.Col,
				EndCol:      endPos.Col,
				StartOffset: m[0],
				EndOffset:   end,
			},
		})
	}
	return frags
}

// dedupeFragments sorts candidates by start offset and drops any candidate
// overlapping an already-kept span. Environment candidates take explicit
// priority in the tie-break so that environments always win over inline or
// display matches contained within them.
func dedupeFragments(candidates []Fragment) []Fragment {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Span.StartOffset != candidates[j].Span.StartOffset {
			return candidates[i].Span.StartOffset < candidates[j].Span.StartOffset
		}
		return candidates[i].Kind > candidates[j].Kind
	})

	kept := make([]Fragment, 0, len(candidates))
	for _, c := range candidates {
		overlaps := false
		for i := len(kept) - 1; i >= 0; i-- {
			if kept[i].Span.EndOffset <= c.Span.StartOffset {
				break
			}
			if kept[i].Span.Overlaps(c.Span) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

// FragmentAt returns the fragment whose span contains offset, scanning the
// given ordered fragment list.
func FragmentAt(fragments []Fragment, offset int) (Fragment, bool) {
	for _, f := range fragments {
		if f.Span.Contains(offset) {
			return f, true
		}
		if f.Span.StartOffset > offset {
			break
		}
	}
	return Fragment{}, false
}

// positionAt converts an offset to a line/column pair using precomputed
// line starts.
func positionAt(lineStarts []int, offset int) Position {
	line := sort.Search(len(lineStarts), func(i int) bool {
		return lineStarts[i] > offset
	}) - 1
	return Position{Line: line, Col: offset - lineStarts[line]}
}

package mathpreview

import (
	"strconv"
	"strings"
)

// Dark variant colors (VS Code dark theme defaults).
const (
	darkBackground = "1E1E1E"
	darkForeground = "D4D4D4"
)

// texBody returns the fragment body as it is inserted into the generated
// document: environments verbatim including their \begin/\end, display
// fragments in an unnumbered display environment, inline fragments in
// display-style inline math.
//
// The body is also what the cache key hashes, so fragments that render
// differently (e.g. the same cells in an align vs. a gather environment)
// can never collide.
func texBody(frag Fragment) string {
	switch frag.Kind {
	case KindEnvironment:
		return frag.RawText
	case KindDisplay:
		return `\[ ` + frag.Content + ` \]`
	default:
		return `$\displaystyle ` + frag.Content + `$`
	}
}

// buildSource assembles a minimal self-contained LaTeX document rendering
// a single fragment, cropped tightly to its content.
func buildSource(frag Fragment, settings DocumentSettings, equationNumber int, variant Variant) string {
	var b strings.Builder

	b.WriteString("\\documentclass[12pt]{article}\n")
	b.WriteString("\\usepackage[active,tightpage,displaymath,textmath]{preview}\n")

	loaded := make(map[string]bool, len(basePackages)+len(settings.ExtraPackages)+1)
	writePackage := func(name string) {
		if loaded[name] {
			return
		}
		loaded[name] = true
		b.WriteString("\\usepackage{" + name + "}\n")
	}
	for _, pkg := range basePackages {
		writePackage(pkg)
	}
	if variant == Dark {
		writePackage("xcolor")
	}
	// Extra packages already in the base set were dropped at extraction
	// time; writePackage still guards against duplicate loads.
	for _, pkg := range settings.ExtraPackages {
		writePackage(pkg)
	}

	if settings.CustomPreamble != "" {
		b.WriteString(settings.CustomPreamble)
		b.WriteString("\n")
	}

	b.WriteString("\\pagestyle{empty}\n")
	if equationNumber > 0 {
		// The counter is incremented by the environment itself, so seed it
		// one below the assigned number.
		b.WriteString("\\setcounter{equation}{" + strconv.Itoa(equationNumber-1) + "}\n")
	}

	b.WriteString("\\begin{document}\n")
	if variant == Dark {
		b.WriteString("\\pagecolor[HTML]{" + darkBackground + "}\n")
		b.WriteString("\\color[HTML]{" + darkForeground + "}\n")
	}
	b.WriteString(texBody(frag))
	b.WriteString("\n\\end{document}\n")

	return b.String()
}

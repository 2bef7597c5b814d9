package mathpreview

import (
	"strings"
	"testing"
)

func TestBuildSource_InlineWrapping(t *testing.T) {
	frag := Fragment{Content: "E=mc^2", Kind: KindInline}
	source := buildSource(frag, DocumentSettings{}, 0, Light)

	if !strings.Contains(source, `$\displaystyle E=mc^2$`) {
		t.Errorf("inline body not wrapped in display-style math:\n%s", source)
	}
}

func TestBuildSource_DisplayWrapping(t *testing.T) {
	frag := Fragment{Content: "a+b", Kind: KindDisplay}
	source := buildSource(frag, DocumentSettings{}, 0, Light)

	if !strings.Contains(source, `\[ a+b \]`) {
		t.Errorf("display body not wrapped in unnumbered display math:\n%s", source)
	}
}

func TestBuildSource_EnvironmentVerbatim(t *testing.T) {
	raw := "\\begin{align}\na &= b\n\\end{align}"
	frag := Fragment{RawText: raw, Content: "a &= b", Kind: KindEnvironment, EnvironmentName: "align"}
	source := buildSource(frag, DocumentSettings{}, 0, Light)

	if !strings.Contains(source, raw) {
		t.Errorf("environment not inserted verbatim:\n%s", source)
	}
}

func TestBuildSource_EquationCounter(t *testing.T) {
	frag := Fragment{RawText: "\\begin{equation}x\\end{equation}", Kind: KindEnvironment, IsNumbered: true}

	source := buildSource(frag, DocumentSettings{}, 3, Light)
	if !strings.Contains(source, `\setcounter{equation}{2}`) {
		t.Errorf("counter not seeded one below the assigned number:\n%s", source)
	}

	source = buildSource(frag, DocumentSettings{}, 0, Light)
	if strings.Contains(source, `\setcounter`) {
		t.Errorf("unnumbered fragment should not set the counter:\n%s", source)
	}
}

func TestBuildSource_DarkVariant(t *testing.T) {
	frag := Fragment{Content: "x", Kind: KindInline}

	source := buildSource(frag, DocumentSettings{}, 0, Dark)
	for _, want := range []string{`\usepackage{xcolor}`, `\pagecolor[HTML]{1E1E1E}`, `\color[HTML]{D4D4D4}`} {
		if !strings.Contains(source, want) {
			t.Errorf("dark variant missing %q:\n%s", want, source)
		}
	}

	light := buildSource(frag, DocumentSettings{}, 0, Light)
	if strings.Contains(light, `\pagecolor`) {
		t.Errorf("light variant should not set page color:\n%s", light)
	}
}

func TestBuildSource_PackageDeduplication(t *testing.T) {
	frag := Fragment{Content: "x", Kind: KindInline}
	settings := DocumentSettings{ExtraPackages: []string{"amsmath", "physics", "physics"}}

	source := buildSource(frag, settings, 0, Light)
	if n := strings.Count(source, `\usepackage{amsmath}`); n != 1 {
		t.Errorf("amsmath loaded %d times, want 1", n)
	}
	if n := strings.Count(source, `\usepackage{physics}`); n != 1 {
		t.Errorf("physics loaded %d times, want 1", n)
	}
}

func TestBuildSource_CustomPreamble(t *testing.T) {
	frag := Fragment{Content: "\\R", Kind: KindInline}
	settings := DocumentSettings{CustomPreamble: "\\newcommand{\\R}{\\mathbb{R}}"}

	source := buildSource(frag, settings, 0, Light)
	preambleAt := strings.Index(source, `\newcommand{\R}`)
	documentAt := strings.Index(source, `\begin{document}`)
	if preambleAt < 0 {
		t.Fatalf("custom preamble missing:\n%s", source)
	}
	if preambleAt > documentAt {
		t.Errorf("custom preamble after \\begin{document}:\n%s", source)
	}
}

func TestBuildSource_SelfContained(t *testing.T) {
	frag := Fragment{Content: "x", Kind: KindInline}
	source := buildSource(frag, DocumentSettings{}, 0, Light)

	for _, want := range []string{
		`\documentclass`,
		`\usepackage[active,tightpage,displaymath,textmath]{preview}`,
		`\usepackage{amsmath}`,
		`\begin{document}`,
		`\end{document}`,
	} {
		if !strings.Contains(source, want) {
			t.Errorf("generated document missing %q:\n%s", want, source)
		}
	}
}

func TestTexBody_DistinguishesKinds(t *testing.T) {
	inline := texBody(Fragment{Content: "x", Kind: KindInline})
	display := texBody(Fragment{Content: "x", Kind: KindDisplay})
	env := texBody(Fragment{RawText: "\\begin{equation}x\\end{equation}", Kind: KindEnvironment})

	if inline == display || inline == env || display == env {
		t.Errorf("bodies collide: inline=%q display=%q env=%q", inline, display, env)
	}
}

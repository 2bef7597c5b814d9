// Package mathpreview renders LaTeX math fragments embedded in plain-text
// documents to images, with a content-addressed disk cache.
//
// # Quick Start
//
// Create a service, wrap a document snapshot, and render the fragment under
// an offset:
//
//	svc, err := mathpreview.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	doc := mathpreview.NewDocument("notes.org", version, text)
//	result, err := svc.RenderAt(ctx, doc, offset, mathpreview.Light)
//	if err != nil {
//	    var re *mathpreview.RenderError
//	    if errors.As(err, &re) {
//	        log.Printf("render failed: %s\n%s", re.Fragment.RawText, re.Diagnostic)
//	    }
//	    return
//	}
//	fmt.Println(result.ImagePath)
//
// # Fragment Detection
//
// The scanner recognizes $...$ and \(...\) inline math, $$...$$ and \[...\]
// display math, and multi-line \begin{name}...\end{name} environments from
// a fixed allow-list (equation, align, gather, multline, and friends,
// including starred forms). Overlapping matches are deduplicated with
// environments taking priority, so math inside an environment is never
// reported twice. Numbered environments receive sequential equation numbers
// in document order, recomputed wholesale on every document change.
//
// Dollar-delimited content starting with a digit is skipped as likely
// currency; "$2x$" is never treated as math.
//
// # Document Settings
//
// Lines before the first structural heading may carry header directives
// that affect every render of the document:
//
//	#+LATEX_HEADER: \usepackage{physics, siunitx}
//	#+LATEX_HEADER: \newcommand{\R}{\mathbb{R}}
//
// Extracted packages extend the built-in base set (amsmath, amssymb,
// amsfonts); all other declarations are passed through as custom preamble.
//
// # Rendering Pipeline
//
// Each fragment is compiled in an isolated scratch directory:
//
//  1. latex to DVI, then dvisvgm to SVG (primary, vector output)
//  2. pdflatex to PDF, then ghostscript to PNG (fallback, raster output)
//
// Results are stored in a flat cache directory keyed by a hash of the
// fragment body, document settings, equation number, and color variant.
// Repeated requests for identical content never reinvoke the toolchain, and
// concurrent requests for the same key share a single in-flight render.
//
// # Toolchain Requirements
//
// Rendering requires a TeX installation providing latex + dvisvgm, or
// pdflatex + gs for raster-only output. Use CheckToolchain for a capability
// summary without rendering anything.
package mathpreview

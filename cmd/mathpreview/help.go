package main

import (
	"fmt"
	"io"
)

// printUsage writes the top-level help text.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `mathpreview - render LaTeX math fragments from plain-text documents

Usage:
  mathpreview render <file> --offset N [--dark]
  mathpreview render <file> --all [--dark]
  mathpreview scan <file>
  mathpreview doctor [--json]
  mathpreview cache <stats|clear|sweep> [--max-age 168h]
  mathpreview version

Common flags:
  -c, --config string   config file name or path
  -q, --quiet           only show errors (render prints bare artifact paths)
  -v, --verbose         show detailed progress

Render flags:
  -p, --offset int      document offset of the fragment to render
  -a, --all             render every fragment (cache warming)
      --dark            render for a dark color scheme
  -t, --timeout string  per-stage toolchain timeout (e.g., 10s, 1m)

Rendering requires a LaTeX toolchain: latex + dvisvgm for SVG output, or
pdflatex + gs for PNG fallback. Run "mathpreview doctor" to check.
`)
}

package main

import (
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

// writeHighlightedTeX writes TeX source with terminal syntax highlighting,
// falling back to plain text when highlighting fails (e.g., no TTY styles).
func writeHighlightedTeX(w io.Writer, source string) {
	if err := quick.Highlight(w, source, "latex", "terminal256", "monokai"); err != nil {
		fmt.Fprint(w, source)
	}
	fmt.Fprintln(w)
}

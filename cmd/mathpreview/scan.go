package main

import (
	"fmt"

	mathpreview "github.com/doctex/go-mathpreview"
)

// runScanCmd lists the math fragments of a document without rendering.
func runScanCmd(args []string, env *Environment) int {
	flags, rest, err := parseScanFlags(args)
	if err != nil {
		return ExitUsage
	}

	if err := scanMain(flags, rest, env); err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// scanMain is the testable body of the scan command.
func scanMain(flags *scanFlags, rest []string, env *Environment) error {
	if len(rest) < 1 {
		return ErrMissingInput
	}

	doc, err := loadDocument(rest[0])
	if err != nil {
		return err
	}

	fragments := mathpreview.ScanFragments(doc.Text())
	numbers := mathpreview.ComputeNumbering(fragments)

	if !flags.common.quiet {
		settings := mathpreview.ExtractSettings(doc.Text())
		if len(settings.ExtraPackages) > 0 {
			fmt.Fprintf(env.Stdout, "extra packages: %v\n", settings.ExtraPackages)
		}
	}

	for _, f := range fragments {
		label := f.Kind.String()
		if f.Kind == mathpreview.KindEnvironment {
			label = f.EnvironmentName
		}
		if n := numbers[f.Span.StartOffset]; n > 0 {
			fmt.Fprintf(env.Stdout, "%d:%d-%d\t%s\teq. %d\t%s\n",
				f.Span.Line+1, f.Span.StartOffset, f.Span.EndOffset, label, n, summarize(f.Content))
		} else {
			fmt.Fprintf(env.Stdout, "%d:%d-%d\t%s\t\t%s\n",
				f.Span.Line+1, f.Span.StartOffset, f.Span.EndOffset, label, summarize(f.Content))
		}
	}
	return nil
}

// summarize truncates long fragment content for one-line listing.
func summarize(content string) string {
	const max = 48
	if len(content) <= max {
		return content
	}
	return content[:max-3] + "..."
}

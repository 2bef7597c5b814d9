package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	mathpreview "github.com/doctex/go-mathpreview"
)

// Sentinel errors for CLI operations.
var (
	ErrMissingInput  = errors.New("usage: mathpreview render <file> (--offset N | --all)")
	ErrMissingOffset = errors.New("either --offset or --all is required")
	ErrReadDocument  = errors.New("failed to read document")
)

// runRenderCmd renders one fragment (or all fragments) of a document file.
func runRenderCmd(args []string, env *Environment) int {
	flags, rest, err := parseRenderFlags(args)
	if err != nil {
		return ExitUsage
	}

	if err := renderMain(flags, rest, env); err != nil {
		reportRenderError(err, env)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// renderMain is the testable body of the render command.
func renderMain(flags *renderFlags, rest []string, env *Environment) error {
	if len(rest) < 1 {
		return ErrMissingInput
	}
	if !flags.all && flags.offset < 0 {
		return ErrMissingOffset
	}

	cfg, err := loadConfigIfSet(flags.common.config, env)
	if err != nil {
		return err
	}

	doc, err := loadDocument(rest[0])
	if err != nil {
		return err
	}

	opts, err := serviceOptions(cfg, flags.timeout)
	if err != nil {
		return err
	}
	svc, err := mathpreview.New(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	if flags.common.verbose {
		fmt.Fprintln(env.Stderr, svc.CheckToolchain().Message)
		fmt.Fprintf(env.Stderr, "cache: %s\n", svc.CacheDir())
	}

	variant := mathpreview.Light
	if flags.dark || cfg.Render.Dark {
		variant = mathpreview.Dark
	}

	ctx := context.Background()
	if flags.all {
		results, err := svc.RenderAll(ctx, doc, variant)
		for _, res := range results {
			printResult(res, flags, env)
		}
		return err
	}

	res, err := svc.RenderAt(ctx, doc, flags.offset, variant)
	if err != nil {
		return err
	}
	printResult(res, flags, env)
	return nil
}

// loadDocument reads a file into a Document. The version token is a hash of
// the content, so an edited file never reuses stale derived state.
func loadDocument(path string) (*mathpreview.Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- document path is user-provided
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadDocument, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", mathpreview.ErrEmptyDocument, path)
	}
	sum := sha256.Sum256(data)
	return mathpreview.NewDocument(path, hex.EncodeToString(sum[:8]), string(data)), nil
}

// printResult writes one render outcome.
func printResult(res *mathpreview.RenderResult, flags *renderFlags, env *Environment) {
	if flags.common.quiet {
		fmt.Fprintln(env.Stdout, res.ImagePath)
		return
	}
	state := "rendered"
	if res.FromCache {
		state = "cached"
	}
	if res.EquationNumber > 0 {
		fmt.Fprintf(env.Stdout, "%s (%s, eq. %d) %s\n", res.Key, state, res.EquationNumber, res.ImagePath)
	} else {
		fmt.Fprintf(env.Stdout, "%s (%s) %s\n", res.Key, state, res.ImagePath)
	}
}

// reportRenderError prints a render failure. The requester always gets the
// original fragment source (highlighted for the terminal) plus the
// toolchain diagnostic, never a bare failure.
func reportRenderError(err error, env *Environment) {
	var re *mathpreview.RenderError
	if !errors.As(err, &re) {
		fmt.Fprintln(env.Stderr, err)
		return
	}

	fmt.Fprintf(env.Stderr, "render failed: %v\n", re.Err)
	if re.Fragment.RawText != "" {
		writeHighlightedTeX(env.Stderr, re.Fragment.RawText)
	}
	if re.Diagnostic != "" {
		fmt.Fprintln(env.Stderr, re.Diagnostic)
	}
}

package main

import (
	"time"

	flag "github.com/spf13/pflag"

	mathpreview "github.com/doctex/go-mathpreview"
	"github.com/doctex/go-mathpreview/internal/config"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// renderFlags holds flags for the render command.
type renderFlags struct {
	common  commonFlags
	offset  int
	all     bool
	dark    bool
	timeout string
}

// scanFlags holds flags for the scan command.
type scanFlags struct {
	common commonFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed progress")
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string) (*renderFlags, []string, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	f := &renderFlags{offset: -1}

	fs.IntVarP(&f.offset, "offset", "p", -1, "document offset of the fragment to render")
	fs.BoolVarP(&f.all, "all", "a", false, "render every fragment (cache warming)")
	fs.BoolVar(&f.dark, "dark", false, "render for a dark color scheme")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-stage toolchain timeout (e.g., 10s, 1m)")

	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseScanFlags parses scan command flags and returns positional args.
func parseScanFlags(args []string) (*scanFlags, []string, error) {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	f := &scanFlags{}
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// loadConfigIfSet loads the named config or returns the environment default.
func loadConfigIfSet(name string, env *Environment) (*config.Config, error) {
	if name == "" {
		return env.Config, nil
	}
	return config.LoadConfig(name)
}

// serviceOptions translates a CLI config into library options.
func serviceOptions(cfg *config.Config, timeoutOverride string) ([]mathpreview.Option, error) {
	var opts []mathpreview.Option

	if cfg.Cache.Dir != "" {
		opts = append(opts, mathpreview.WithCacheDir(cfg.Cache.Dir))
	}
	if cfg.Cache.MaxAgeDays > 0 {
		opts = append(opts, mathpreview.WithMaxAge(time.Duration(cfg.Cache.MaxAgeDays)*24*time.Hour))
	}
	if cfg.Render.DPI > 0 {
		opts = append(opts, mathpreview.WithRasterDPI(cfg.Render.DPI))
	}
	if len(cfg.Render.ExtraPackages) > 0 {
		opts = append(opts, mathpreview.WithExtraPackages(cfg.Render.ExtraPackages))
	}

	tools := mathpreview.ToolPaths{
		Latex:       cfg.Toolchain.Latex,
		Dvisvgm:     cfg.Toolchain.Dvisvgm,
		PdfLatex:    cfg.Toolchain.PdfLatex,
		Ghostscript: cfg.Toolchain.Ghostscript,
	}
	if tools != (mathpreview.ToolPaths{}) {
		opts = append(opts, mathpreview.WithTools(tools))
	}

	switch {
	case timeoutOverride != "":
		d, err := time.ParseDuration(timeoutOverride)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mathpreview.WithStageTimeout(d))
	case cfg.Toolchain.TimeoutSeconds > 0:
		opts = append(opts, mathpreview.WithStageTimeout(time.Duration(cfg.Toolchain.TimeoutSeconds)*time.Second))
	}

	return opts, nil
}

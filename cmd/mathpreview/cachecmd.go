package main

import (
	"fmt"
	"time"

	mathpreview "github.com/doctex/go-mathpreview"
)

// runCacheCmd executes cache maintenance subcommands: stats, clear, sweep.
func runCacheCmd(args []string, env *Environment) int {
	if len(args) == 0 {
		fmt.Fprintln(env.Stderr, "usage: mathpreview cache <stats|clear|sweep> [--max-age 168h]")
		return ExitUsage
	}

	if err := cacheMain(args, env); err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// cacheMain is the testable body of the cache command.
func cacheMain(args []string, env *Environment) error {
	opts, err := serviceOptions(env.Config, "")
	if err != nil {
		return err
	}
	svc, err := mathpreview.New(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	switch args[0] {
	case "stats":
		stats, err := svc.CacheStats()
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "%s: %d entries, %d bytes\n", svc.CacheDir(), stats.EntryCount, stats.TotalBytes)
		return nil

	case "clear":
		if err := svc.ClearCache(); err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "cleared %s\n", svc.CacheDir())
		return nil

	case "sweep":
		maxAge := mathpreview.DefaultMaxAge
		for i := 1; i < len(args)-1; i++ {
			if args[i] == "--max-age" {
				d, err := time.ParseDuration(args[i+1])
				if err != nil {
					return fmt.Errorf("parsing --max-age: %w", err)
				}
				maxAge = d
			}
		}
		if err := svc.SweepCache(maxAge); err != nil {
			return err
		}
		stats, err := svc.CacheStats()
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "swept %s: %d entries remain\n", svc.CacheDir(), stats.EntryCount)
		return nil

	default:
		return fmt.Errorf("%w: unknown cache subcommand %q", ErrMissingInput, args[0])
	}
}

package main

import (
	"errors"
	"os"

	mathpreview "github.com/doctex/go-mathpreview"
	"github.com/doctex/go-mathpreview/internal/config"
)

// Exit codes for the mathpreview CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, custom codes < 126.
const (
	ExitSuccess   = 0 // Successful run
	ExitGeneral   = 1 // General/unexpected error
	ExitUsage     = 2 // Invalid flags, config, or arguments
	ExitIO        = 3 // File not found, permission denied
	ExitToolchain = 4 // LaTeX toolchain missing or failing
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must wrap with
// fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, mathpreview.ErrToolchainUnavailable) ||
		errors.Is(err, mathpreview.ErrCompilationFailed) ||
		errors.Is(err, mathpreview.ErrConversionFailed) {
		return ExitToolchain
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, mathpreview.ErrCacheIO) ||
		errors.Is(err, ErrReadDocument) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, mathpreview.ErrNoFragmentAtPosition) ||
		errors.Is(err, mathpreview.ErrEmptyDocument) ||
		errors.Is(err, ErrMissingInput) ||
		errors.Is(err, ErrMissingOffset) {
		return ExitUsage
	}

	return ExitGeneral
}

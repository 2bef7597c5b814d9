package mathpreview

import "errors"

// Sentinel errors for library operations.
var (
	ErrNoFragmentAtPosition = errors.New("no math fragment at position")
	ErrToolchainUnavailable = errors.New("no LaTeX toolchain found")
	ErrCompilationFailed    = errors.New("LaTeX compilation failed")
	ErrConversionFailed     = errors.New("image conversion failed")
	ErrCacheIO              = errors.New("cache I/O failure")

	// Document addressing errors.
	ErrEmptyDocument = errors.New("document text cannot be empty")

	// Service lifecycle errors.
	ErrServiceClosed = errors.New("render service is closed")
)

package mathpreview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RenderService is the public entry point for fragment rendering. It owns
// the disk cache, the per-document derived state (fragments, settings,
// equation numbering), and the in-flight render registry.
//
// All methods are safe for concurrent use. Concurrent renders of the same
// cache key share one toolchain invocation: callers attach to the existing
// in-flight render rather than spawning another subprocess chain.
type RenderService struct {
	cfg   serviceConfig
	cache *Cache
	orch  *Orchestrator

	flight singleflight.Group

	mu     sync.Mutex
	docs   map[string]*documentState // keyed by Document.ID
	closed bool

	probeOnce sync.Once
	probe     Availability
}

// documentState is derived state for one document version, recomputed from
// scratch whenever the version changes.
type documentState struct {
	version   string
	fragments []Fragment
	settings  DocumentSettings
	numbering map[int]int
}

// serviceConfig holds internal configuration for RenderService.
type serviceConfig struct {
	cacheDir      string
	maxAge        time.Duration
	stageTimeout  time.Duration
	rasterDPI     int
	tools         ToolPaths
	runner        ToolRunner
	extraPackages []string
}

// Option configures a RenderService.
type Option func(*serviceConfig)

// WithCacheDir sets the artifact cache directory.
// Default: <user cache dir>/mathpreview.
func WithCacheDir(dir string) Option {
	return func(c *serviceConfig) { c.cacheDir = dir }
}

// WithMaxAge sets the artifact age beyond which the startup sweep deletes
// cached renders. Panics if d < 0 (programmer error).
func WithMaxAge(d time.Duration) Option {
	if d < 0 {
		panic("mathpreview: WithMaxAge duration must not be negative")
	}
	return func(c *serviceConfig) { c.maxAge = d }
}

// WithStageTimeout bounds each external tool invocation.
func WithStageTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mathpreview: WithStageTimeout duration must be positive")
	}
	return func(c *serviceConfig) { c.stageTimeout = d }
}

// WithRasterDPI sets the resolution of the PNG fallback pipeline.
func WithRasterDPI(dpi int) Option {
	return func(c *serviceConfig) { c.rasterDPI = dpi }
}

// WithTools overrides the external binary names or paths.
func WithTools(tools ToolPaths) Option {
	return func(c *serviceConfig) { c.tools = tools }
}

// WithToolRunner injects a ToolRunner (e.g., a fake for tests).
func WithToolRunner(r ToolRunner) Option {
	return func(c *serviceConfig) { c.runner = r }
}

// WithExtraPackages loads additional LaTeX packages for every document, as
// if each document declared them in a header directive.
func WithExtraPackages(pkgs []string) Option {
	return func(c *serviceConfig) { c.extraPackages = pkgs }
}

// New creates a RenderService, opening the cache directory and sweeping
// artifacts older than the configured max age. The sweep runs only here and
// on explicit cache maintenance, never periodically.
func New(opts ...Option) (*RenderService, error) {
	cfg := serviceConfig{
		maxAge:       DefaultMaxAge,
		stageTimeout: DefaultStageTimeout,
		rasterDPI:    DefaultRasterDPI,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runner == nil {
		cfg.runner = NewExecToolRunner()
	}
	if cfg.cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolving cache directory: %w", err)
		}
		cfg.cacheDir = filepath.Join(base, "mathpreview")
	}

	cache, err := NewCache(cfg.cacheDir)
	if err != nil {
		return nil, err
	}
	if err := cache.Sweep(cfg.maxAge); err != nil {
		return nil, err
	}

	return &RenderService{
		cfg:   cfg,
		cache: cache,
		orch:  NewOrchestrator(cfg.runner, cfg.tools, cfg.stageTimeout, cfg.rasterDPI),
		docs:  make(map[string]*documentState),
	}, nil
}

// Close releases the service. Subsequent render calls fail with
// ErrServiceClosed. In-flight subprocesses run to their timeout; their
// results are still written to the cache for future use.
func (s *RenderService) Close() error {
	s.mu.Lock()
	s.closed = true
	s.docs = make(map[string]*documentState)
	s.mu.Unlock()
	return nil
}

// RenderAt renders the math fragment whose span contains offset.
//
// Cache hits return immediately without touching the toolchain. On a miss
// the fragment is rendered, stored, and returned. Failures are returned as
// a *RenderError carrying the fragment source and the toolchain diagnostic;
// the caller always receives either an artifact or an explanation.
func (s *RenderService) RenderAt(ctx context.Context, doc *Document, offset int, variant Variant) (*RenderResult, error) {
	st, err := s.stateFor(doc)
	if err != nil {
		return nil, err
	}

	frag, ok := FragmentAt(st.fragments, offset)
	if !ok {
		return nil, &RenderError{Err: ErrNoFragmentAtPosition}
	}

	return s.renderFragment(ctx, frag, st, variant)
}

// RenderAll renders every fragment of the document, warming the cache.
// Rendering continues past individual failures; the returned error joins
// them (nil when every fragment rendered).
func (s *RenderService) RenderAll(ctx context.Context, doc *Document, variant Variant) ([]*RenderResult, error) {
	st, err := s.stateFor(doc)
	if err != nil {
		return nil, err
	}

	var results []*RenderResult
	var errs []error
	for _, frag := range st.fragments {
		res, err := s.renderFragment(ctx, frag, st, variant)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Fragments returns the scanned fragment list for the document version.
func (s *RenderService) Fragments(doc *Document) ([]Fragment, error) {
	st, err := s.stateFor(doc)
	if err != nil {
		return nil, err
	}
	return st.fragments, nil
}

// Settings returns the extracted document settings for the document version.
func (s *RenderService) Settings(doc *Document) (DocumentSettings, error) {
	st, err := s.stateFor(doc)
	if err != nil {
		return DocumentSettings{}, err
	}
	return st.settings, nil
}

// EquationNumber returns the 1-based number assigned to the fragment, or 0
// if it is unnumbered.
func (s *RenderService) EquationNumber(doc *Document, frag Fragment) (int, error) {
	st, err := s.stateFor(doc)
	if err != nil {
		return 0, err
	}
	return st.numbering[frag.Span.StartOffset], nil
}

// CheckToolchain probes for the external tools once per service instance
// and reports a human-readable capability summary.
func (s *RenderService) CheckToolchain() Availability {
	s.probeOnce.Do(func() {
		s.probe = s.orch.Probe()
	})
	return s.probe
}

// ClearCache removes all cached artifacts and resets the per-document
// state, including equation-counter caches: after a forced clear the
// underlying toolchain may have changed, so nothing derived survives.
func (s *RenderService) ClearCache() error {
	if err := s.cache.Clear(); err != nil {
		return err
	}
	s.mu.Lock()
	s.docs = make(map[string]*documentState)
	s.mu.Unlock()
	return nil
}

// SweepCache deletes cached artifacts older than maxAge.
func (s *RenderService) SweepCache(maxAge time.Duration) error {
	return s.cache.Sweep(maxAge)
}

// CacheStats reports the cache entry count and total size on disk.
func (s *RenderService) CacheStats() (CacheStats, error) {
	return s.cache.Stats()
}

// CacheDir returns the artifact cache directory.
func (s *RenderService) CacheDir() string {
	return s.cache.Dir()
}

// stateFor returns the derived state for the document's current version,
// computing it once. A version change discards the previous state entirely
// (full recompute, no partial invalidation).
func (s *RenderService) stateFor(doc *Document) (*documentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServiceClosed
	}

	if st, ok := s.docs[doc.ID()]; ok && st.version == doc.Version() {
		return st, nil
	}

	fragments := ScanFragments(doc.Text())
	st := &documentState{
		version:   doc.Version(),
		fragments: fragments,
		settings:  s.mergePackages(ExtractSettings(doc.Text())),
		numbering: ComputeNumbering(fragments),
	}
	s.docs[doc.ID()] = st
	return st, nil
}

// mergePackages appends the service-wide extra packages to the document's
// extracted settings, preserving order and skipping duplicates.
func (s *RenderService) mergePackages(settings DocumentSettings) DocumentSettings {
	if len(s.cfg.extraPackages) == 0 {
		return settings
	}
	seen := make(map[string]bool, len(basePackages)+len(settings.ExtraPackages))
	for _, p := range basePackages {
		seen[p] = true
	}
	for _, p := range settings.ExtraPackages {
		seen[p] = true
	}
	for _, p := range s.cfg.extraPackages {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		settings.ExtraPackages = append(settings.ExtraPackages, p)
	}
	return settings
}

// renderFragment resolves a single fragment through cache, single-flight
// registry, and toolchain, in that order.
func (s *RenderService) renderFragment(ctx context.Context, frag Fragment, st *documentState, variant Variant) (*RenderResult, error) {
	number := st.numbering[frag.Span.StartOffset]
	key := ComputeKey(texBody(frag), st.settings, number, variant)

	if entry, ok := s.cache.Lookup(key); ok {
		return resultFrom(frag, key, number, entry, true), nil
	}

	if avail := s.CheckToolchain(); !avail.Available {
		return nil, &RenderError{
			Fragment:   frag,
			Diagnostic: avail.Message,
			Err:        ErrToolchainUnavailable,
		}
	}

	// At most one toolchain invocation per key: concurrent requests for
	// the same key attach to the in-flight render instead of spawning
	// another subprocess chain.
	v, err, _ := s.flight.Do(key, func() (any, error) {
		if entry, ok := s.cache.Lookup(key); ok {
			return entry, nil
		}
		// An abandoned request must not kill a dispatched subprocess:
		// the run is bounded by stage timeouts and its result is cached
		// for future requests of the same key.
		art, err := s.orch.Render(context.WithoutCancel(ctx), frag, st.settings, number, variant)
		if err != nil {
			return nil, err
		}
		return s.cache.Store(key, variant, art.Format, art.Data)
	})
	if err != nil {
		var re *RenderError
		if errors.As(err, &re) {
			return nil, re
		}
		return nil, &RenderError{
			Fragment:   frag,
			Diagnostic: err.Error(),
			Err:        classifyRenderErr(err),
		}
	}

	return resultFrom(frag, key, number, v.(CacheEntry), false), nil
}

// classifyRenderErr maps an orchestrator error to its sentinel.
func classifyRenderErr(err error) error {
	for _, sentinel := range []error{ErrToolchainUnavailable, ErrCompilationFailed, ErrConversionFailed, ErrCacheIO} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return ErrCompilationFailed
}

// resultFrom assembles a RenderResult from a cache entry.
func resultFrom(frag Fragment, key string, number int, entry CacheEntry, fromCache bool) *RenderResult {
	return &RenderResult{
		Fragment:       frag,
		Key:            key,
		ImagePath:      entry.ArtifactPath,
		FallbackPath:   entry.FallbackPath,
		EquationNumber: number,
		FromCache:      fromCache,
		CreatedAt:      entry.CreatedAt,
	}
}

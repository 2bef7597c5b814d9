package mathpreview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doctex/go-mathpreview/internal/fileutil"
)

// Toolchain defaults.
const (
	DefaultStageTimeout = 10 * time.Second
	DefaultRasterDPI    = 150

	// jobName is the basename of all build artifacts in a scratch dir.
	jobName = "preview"
)

// ToolPaths names the external binaries of the render pipelines.
// Empty fields fall back to the conventional names on PATH.
type ToolPaths struct {
	Latex       string // DVI compiler (primary pipeline)
	Dvisvgm     string // DVI to SVG converter (primary pipeline)
	PdfLatex    string // PDF compiler (fallback pipeline)
	Ghostscript string // PDF rasterizer (fallback pipeline)
}

// withDefaults fills unset tool names.
func (t ToolPaths) withDefaults() ToolPaths {
	if t.Latex == "" {
		t.Latex = "latex"
	}
	if t.Dvisvgm == "" {
		t.Dvisvgm = "dvisvgm"
	}
	if t.PdfLatex == "" {
		t.PdfLatex = "pdflatex"
	}
	if t.Ghostscript == "" {
		t.Ghostscript = "gs"
	}
	return t
}

// Availability is the result of the one-time toolchain probe.
type Availability struct {
	Available bool   // at least one pipeline can run
	Vector    bool   // latex + dvisvgm found
	Raster    bool   // pdflatex + ghostscript found
	Message   string // human-readable capability summary
}

// renderedArtifact is the in-memory output of one successful render.
type renderedArtifact struct {
	Format string // "svg" or "png"
	Data   []byte
}

// Orchestrator drives the external compile/convert toolchain with a
// vector-first fallback chain.
type Orchestrator struct {
	runner       ToolRunner
	tools        ToolPaths
	stageTimeout time.Duration
	rasterDPI    int

	probeOnce sync.Once
	avail     Availability
}

// NewOrchestrator creates an Orchestrator over the given runner.
func NewOrchestrator(runner ToolRunner, tools ToolPaths, stageTimeout time.Duration, rasterDPI int) *Orchestrator {
	if stageTimeout <= 0 {
		stageTimeout = DefaultStageTimeout
	}
	if rasterDPI <= 0 {
		rasterDPI = DefaultRasterDPI
	}
	return &Orchestrator{
		runner:       runner,
		tools:        tools.withDefaults(),
		stageTimeout: stageTimeout,
		rasterDPI:    rasterDPI,
	}
}

// Probe checks for the pipeline binaries without performing a render and
// returns a capability summary. Used to short-circuit render requests when
// the toolchain is known absent. The lookup runs once per Orchestrator;
// every later call returns the cached result.
func (o *Orchestrator) Probe() Availability {
	o.probeOnce.Do(func() {
		o.avail = o.probeTools()
	})
	return o.avail
}

// probeTools performs the actual PATH lookups.
func (o *Orchestrator) probeTools() Availability {
	var a Availability

	_, latexErr := o.runner.LookPath(o.tools.Latex)
	_, svgErr := o.runner.LookPath(o.tools.Dvisvgm)
	a.Vector = latexErr == nil && svgErr == nil

	_, pdfErr := o.runner.LookPath(o.tools.PdfLatex)
	_, gsErr := o.runner.LookPath(o.tools.Ghostscript)
	a.Raster = pdfErr == nil && gsErr == nil

	a.Available = a.Vector || a.Raster
	switch {
	case a.Vector && a.Raster:
		a.Message = fmt.Sprintf("toolchain available: %s + %s (SVG), %s + %s (PNG fallback)",
			o.tools.Latex, o.tools.Dvisvgm, o.tools.PdfLatex, o.tools.Ghostscript)
	case a.Vector:
		a.Message = fmt.Sprintf("toolchain available: %s + %s (SVG only)", o.tools.Latex, o.tools.Dvisvgm)
	case a.Raster:
		a.Message = fmt.Sprintf("degraded to raster output: %s + %s (install %s and %s for SVG)",
			o.tools.PdfLatex, o.tools.Ghostscript, o.tools.Latex, o.tools.Dvisvgm)
	default:
		a.Message = fmt.Sprintf("toolchain unavailable: install %s + %s or %s + %s",
			o.tools.Latex, o.tools.Dvisvgm, o.tools.PdfLatex, o.tools.Ghostscript)
	}
	return a
}

// Render compiles one fragment to an image, attempting the vector pipeline
// first and falling back to raster. All build artifacts live in a uniquely
// named scratch directory that is removed unconditionally afterwards.
//
// A stage failure (non-zero exit, timeout, or missing output) is not fatal:
// control falls through to the next pipeline. When both pipelines fail the
// returned error wraps the more specific compiler diagnostic.
func (o *Orchestrator) Render(ctx context.Context, frag Fragment, settings DocumentSettings, equationNumber int, variant Variant) (renderedArtifact, error) {
	avail := o.Probe()
	if !avail.Available {
		return renderedArtifact{}, fmt.Errorf("%w: %s", ErrToolchainUnavailable, avail.Message)
	}

	scratch := filepath.Join(os.TempDir(), "mathpreview-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		return renderedArtifact{}, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	source := buildSource(frag, settings, equationNumber, variant)
	if err := os.WriteFile(filepath.Join(scratch, jobName+".tex"), []byte(source), 0o600); err != nil {
		return renderedArtifact{}, fmt.Errorf("writing source document: %w", err)
	}

	var vectorErr, rasterErr error
	if avail.Vector {
		art, err := o.renderVector(ctx, scratch)
		if err == nil {
			return art, nil
		}
		vectorErr = err
	}
	if avail.Raster {
		art, err := o.renderRaster(ctx, scratch)
		if err == nil {
			return art, nil
		}
		rasterErr = err
	}

	return renderedArtifact{}, preferDiagnostic(vectorErr, rasterErr)
}

// renderVector runs the primary pipeline: latex to DVI, dvisvgm to SVG.
func (o *Orchestrator) renderVector(ctx context.Context, scratch string) (renderedArtifact, error) {
	err := o.runStage(ctx, scratch, o.tools.Latex,
		[]string{"-interaction=nonstopmode", "-halt-on-error", jobName + ".tex"},
		jobName+".dvi", ErrCompilationFailed)
	if err != nil {
		return renderedArtifact{}, err
	}

	err = o.runStage(ctx, scratch, o.tools.Dvisvgm,
		[]string{"--no-fonts", "--exact", "-o", jobName + ".svg", jobName + ".dvi"},
		jobName+".svg", ErrConversionFailed)
	if err != nil {
		return renderedArtifact{}, err
	}

	data, err := os.ReadFile(filepath.Join(scratch, jobName+".svg"))
	if err != nil {
		return renderedArtifact{}, fmt.Errorf("%w: reading SVG output: %v", ErrConversionFailed, err)
	}
	return renderedArtifact{Format: "svg", Data: data}, nil
}

// renderRaster runs the fallback pipeline: pdflatex to PDF, ghostscript to
// a PNG of the first page at a fixed resolution.
func (o *Orchestrator) renderRaster(ctx context.Context, scratch string) (renderedArtifact, error) {
	err := o.runStage(ctx, scratch, o.tools.PdfLatex,
		[]string{"-interaction=nonstopmode", "-halt-on-error", jobName + ".tex"},
		jobName+".pdf", ErrCompilationFailed)
	if err != nil {
		return renderedArtifact{}, err
	}

	err = o.runStage(ctx, scratch, o.tools.Ghostscript,
		[]string{
			"-dSAFER", "-dBATCH", "-dNOPAUSE",
			"-dFirstPage=1", "-dLastPage=1",
			"-sDEVICE=png16m", "-r" + strconv.Itoa(o.rasterDPI),
			"-sOutputFile=" + jobName + ".png", jobName + ".pdf",
		},
		jobName+".png", ErrConversionFailed)
	if err != nil {
		return renderedArtifact{}, err
	}

	data, err := os.ReadFile(filepath.Join(scratch, jobName+".png"))
	if err != nil {
		return renderedArtifact{}, fmt.Errorf("%w: reading PNG output: %v", ErrConversionFailed, err)
	}
	return renderedArtifact{Format: "png", Data: data}, nil
}

// runStage invokes one tool with a bounded timeout and verifies that the
// expected output file appeared. A non-zero exit, a timeout, or a missing
// output is a stage failure classified by sentinel.
func (o *Orchestrator) runStage(ctx context.Context, scratch, tool string, args []string, wantOutput string, sentinel error) error {
	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	res, err := o.runner.Run(stageCtx, tool, args, scratch)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", sentinel, tool, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited %d: %s", sentinel, tool, res.ExitCode, diagnosticOf(res))
	}
	if !fileutil.FileExists(filepath.Join(scratch, wantOutput)) {
		return fmt.Errorf("%w: %s produced no %s: %s", sentinel, tool, wantOutput, diagnosticOf(res))
	}
	return nil
}

// diagnosticOf extracts the most useful message from a tool result. LaTeX
// compilers write errors to stdout (the log stream); converters to stderr.
func diagnosticOf(res ToolResult) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return tailLines(s, 20)
	}
	return tailLines(strings.TrimSpace(res.Stdout), 20)
}

// tailLines returns at most the last n lines of s.
func tailLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// preferDiagnostic picks the more specific of two pipeline failures: a
// compilation diagnostic beats a bare conversion failure, and the vector
// pipeline's message wins ties since it ran first against the same source.
func preferDiagnostic(vectorErr, rasterErr error) error {
	switch {
	case vectorErr == nil:
		return rasterErr
	case rasterErr == nil:
		return vectorErr
	case len(rasterErr.Error()) > len(vectorErr.Error()):
		return rasterErr
	default:
		return vectorErr
	}
}

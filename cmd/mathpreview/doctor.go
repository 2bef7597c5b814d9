package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	mathpreview "github.com/doctex/go-mathpreview"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status    string        `json:"status"` // "ready", "degraded", "errors"
	Toolchain toolchainInfo `json:"toolchain"`
	Cache     cacheInfo     `json:"cache"`
	System    systemInfo    `json:"system"`
	Warnings  []string      `json:"warnings,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

// toolchainInfo holds LaTeX toolchain detection results.
type toolchainInfo struct {
	Vector   bool              `json:"vector"` // latex + dvisvgm
	Raster   bool              `json:"raster"` // pdflatex + ghostscript
	Message  string            `json:"message"`
	Versions map[string]string `json:"versions,omitempty"`
}

// cacheInfo holds cache directory check results.
type cacheInfo struct {
	Dir        string `json:"dir"`
	Writable   bool   `json:"writable"`
	EntryCount int    `json:"entry_count"`
	TotalBytes int64  `json:"total_bytes"`
}

// systemInfo holds system check results.
type systemInfo struct {
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	TempWritable bool   `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including degraded/warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	for _, arg := range args {
		if arg == "--json" {
			jsonOutput = true
		}
	}

	result := runDoctor(env)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		System: systemInfo{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}

	checkToolchain(result, env)
	checkCache(result, env)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if !result.Toolchain.Vector {
		result.Status = "degraded"
	}
	return result
}

// checkToolchain probes the render pipelines and collects tool versions.
func checkToolchain(result *doctorResult, env *Environment) {
	opts, err := serviceOptions(env.Config, "")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("config: %v", err))
		return
	}
	svc, err := mathpreview.New(opts...)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("starting service: %v", err))
		return
	}
	defer svc.Close()

	avail := svc.CheckToolchain()
	result.Toolchain.Vector = avail.Vector
	result.Toolchain.Raster = avail.Raster
	result.Toolchain.Message = avail.Message
	if !avail.Available {
		result.Errors = append(result.Errors, avail.Message)
	} else if !avail.Vector {
		result.Warnings = append(result.Warnings, avail.Message)
	}

	result.Toolchain.Versions = toolVersions(env)
}

// toolVersions runs "<tool> --version" for each installed pipeline binary.
func toolVersions(env *Environment) map[string]string {
	names := []string{
		orDefault(env.Config.Toolchain.Latex, "latex"),
		orDefault(env.Config.Toolchain.Dvisvgm, "dvisvgm"),
		orDefault(env.Config.Toolchain.PdfLatex, "pdflatex"),
		orDefault(env.Config.Toolchain.Ghostscript, "gs"),
	}

	runner := mathpreview.NewExecToolRunner()
	versions := make(map[string]string)
	for _, name := range names {
		if _, err := runner.LookPath(name); err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		res, err := runner.Run(ctx, name, []string{"--version"}, "")
		cancel()
		if err != nil || res.ExitCode != 0 {
			continue
		}
		if line, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n"); line != "" {
			versions[name] = line
		}
	}
	return versions
}

// checkCache verifies the cache directory and reads its stats.
func checkCache(result *doctorResult, env *Environment) {
	opts, err := serviceOptions(env.Config, "")
	if err != nil {
		return
	}
	svc, err := mathpreview.New(opts...)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cache directory: %v", err))
		return
	}
	defer svc.Close()

	result.Cache.Dir = svc.CacheDir()
	result.Cache.Writable = true
	if stats, err := svc.CacheStats(); err == nil {
		result.Cache.EntryCount = stats.EntryCount
		result.Cache.TotalBytes = stats.TotalBytes
	}
}

// checkSystem verifies that scratch directories can be created.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	probe, err := os.MkdirTemp(tmpDir, "mathpreview-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("temp directory not writable: %s", tmpDir))
		return
	}
	_ = os.RemoveAll(probe)
	result.System.TempWritable = true
}

// orDefault returns s, or def when s is empty.
func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "mathpreview doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Toolchain")
	if r.Toolchain.Vector {
		fmt.Fprintln(w, "  [OK] Vector pipeline (latex + dvisvgm)")
	} else {
		fmt.Fprintln(w, "  [WARN] Vector pipeline not found")
	}
	if r.Toolchain.Raster {
		fmt.Fprintln(w, "  [OK] Raster pipeline (pdflatex + ghostscript)")
	} else {
		fmt.Fprintln(w, "  [WARN] Raster pipeline not found")
	}
	for tool, version := range r.Toolchain.Versions {
		fmt.Fprintf(w, "  [OK] %s: %s\n", tool, version)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Cache")
	if r.Cache.Writable {
		fmt.Fprintf(w, "  [OK] Directory: %s\n", r.Cache.Dir)
		fmt.Fprintf(w, "  [OK] Entries: %d (%d bytes)\n", r.Cache.EntryCount, r.Cache.TotalBytes)
	} else {
		fmt.Fprintln(w, "  [ERROR] Cache directory not writable")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.System.OS, r.System.Arch)
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to render")
	case "degraded":
		fmt.Fprintln(w, "Status: Ready (raster fallback only)")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

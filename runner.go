package mathpreview

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// ToolResult is the outcome of one external tool invocation.
type ToolResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ToolRunner abstracts external process execution so the orchestration
// logic is testable with a fake that simulates success, failure, and
// timeout without invoking real binaries.
//
// Run reports a non-zero exit code through ToolResult, not through the
// error return; the error is reserved for spawn failures and context
// cancellation or timeout.
type ToolRunner interface {
	Run(ctx context.Context, name string, args []string, dir string) (ToolResult, error)
	LookPath(name string) (string, error)
}

// execToolRunner runs tools with os/exec.
type execToolRunner struct{}

// NewExecToolRunner returns the default ToolRunner backed by os/exec.
func NewExecToolRunner() ToolRunner {
	return execToolRunner{}
}

func (execToolRunner) Run(ctx context.Context, name string, args []string, dir string) (ToolResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ToolResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		// Killed by deadline or cancellation; surface the context error so
		// callers can tell a timeout from a compiler failure.
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

func (execToolRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

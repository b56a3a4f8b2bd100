package toolsystem

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

const (
	defaultBashTimeout    = 30 * time.Second
	defaultMaxOutputBytes = 1 << 20 // 1MiB per stream
)

// BashTool runs an arbitrary shell command. It is the reference tool
// implementation: hard timeout, per-stream output truncation, and gated
// behind the conductor's authorization step before Invoke ever runs.
type BashTool struct {
	Timeout        time.Duration
	MaxOutputBytes int
	Shell          string // not consulted: Invoke always runs "/bin/sh -c"
}

// NewBashTool builds a BashTool with the package defaults (30s timeout,
// 1MiB truncation per stream).
func NewBashTool() *BashTool {
	return &BashTool{Timeout: defaultBashTimeout, MaxOutputBytes: defaultMaxOutputBytes}
}

func (b *BashTool) Declaration() wire.ToolDeclaration {
	return wire.ToolDeclaration{
		Name:        "bash",
		Description: "Run a shell command and capture its stdout, stderr, and exit code.",
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "the shell command to execute",
				},
			},
			"required": []any{"command"},
		},
	}
}

func (b *BashTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return nil, newToolError(ErrBadArgs, "bash", "missing or empty \"command\" string argument", nil)
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = defaultBashTimeout
	}
	maxBytes := b.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxOutputBytes
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shellPath, shellArg := "/bin/sh", "-c"
	cmd := exec.CommandContext(runCtx, shellPath, shellArg, command)
	// On timeout or cancellation the shell first gets SIGTERM; if it has not
	// exited after the grace period, exec kills it with SIGKILL.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr truncatingBuffer
	stdout.limit = maxBytes
	stderr.limit = maxBytes
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, newToolError(ErrTimeout, "bash", "command exceeded its timeout", runErr)
	}

	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return nil, newToolError(ErrFailed, "bash", "failed to start command", runErr)
	}

	return map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
		"truncated": stdout.truncated || stderr.truncated,
	}, nil
}

// truncatingBuffer caps total writes at limit bytes, discarding the rest
// and recording that it happened rather than growing without bound.
type truncatingBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (t *truncatingBuffer) Write(p []byte) (int, error) {
	remaining := t.limit - t.buf.Len()
	if remaining <= 0 {
		t.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		t.buf.Write(p[:remaining])
		t.truncated = true
		return len(p), nil
	}
	t.buf.Write(p)
	return len(p), nil
}

func (t *truncatingBuffer) String() string { return t.buf.String() }

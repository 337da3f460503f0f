// Package e2e provides testing infrastructure for end-to-end CLI tests.
// It runs commands against an isolated configuration, database, and
// history directory, capturing their output.
package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/permisync/internal/cli"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness runs CLI commands against an isolated environment: its own
// config file, database, history directory, and backup directory, all
// under a per-test temp dir.
type Harness struct {
	t          *testing.T
	baseDir    string
	configPath string
}

// NewHarness creates a harness with a fresh environment.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	baseDir := t.TempDir()
	configPath := filepath.Join(baseDir, "config.yaml")

	content := "" +
		"remote:\n" +
		"  spreadsheet_id: sheet-e2e\n" +
		"  worksheet: Permisos2026\n" +
		"storage:\n" +
		"  database_path: " + filepath.Join(baseDir, "permisos.db") + "\n" +
		"  history_dir: " + filepath.Join(baseDir, "history") + "\n" +
		"  event_log_path: " + filepath.Join(baseDir, "events.jsonl") + "\n" +
		"  backup_dir: " + filepath.Join(baseDir, "backups") + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write harness config: %v", err)
	}

	return &Harness{
		t:          t,
		baseDir:    baseDir,
		configPath: configPath,
	}
}

// BaseDir returns the isolated directory for this test.
func (h *Harness) BaseDir() string {
	return h.baseDir
}

// ConfigPath returns the path of the harness config file.
func (h *Harness) ConfigPath() string {
	return h.configPath
}

// Run executes a CLI command against the harness environment and captures
// its output. The program name, --no-color, and --config are prepended.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()
	return h.run("", args)
}

// RunWithStdin executes a CLI command with stdin input. Useful for commands
// that prompt the user.
func (h *Harness) RunWithStdin(stdin string, args ...string) *Result {
	h.t.Helper()
	return h.run(stdin, args)
}

func (h *Harness) run(stdin string, args []string) *Result {
	h.t.Helper()

	full := append([]string{"permisync", "--no-color", "--config", h.configPath}, args...)

	var oldStdin *os.File
	if stdin != "" {
		stdinR, stdinW, err := os.Pipe()
		if err != nil {
			h.t.Fatalf("failed to create stdin pipe: %v", err)
		}
		go func() {
			defer func() { _ = stdinW.Close() }()
			_, _ = stdinW.WriteString(stdin)
		}()
		oldStdin = os.Stdin
		os.Stdin = stdinR
	}

	oldStdout := os.Stdout
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	// Read concurrently so output larger than the pipe buffer cannot
	// block the command.
	var stdoutBuf bytes.Buffer
	var copyErr error
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, copyErr = io.Copy(&stdoutBuf, stdoutR)
	}()

	cmdErr := cli.Run(context.Background(), full)

	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	os.Stdout = oldStdout
	if oldStdin != nil {
		os.Stdin = oldStdin
	}

	<-copyDone
	if copyErr != nil {
		h.t.Fatalf("failed to read captured stdout: %v", copyErr)
	}

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}

	return &Result{
		Stdout:   stdoutBuf.String(),
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}

// SeedRequest records a full-day leave request through the CLI and returns
// the command result.
func (h *Harness) SeedRequest(delegada, fecha string, extra ...string) *Result {
	h.t.Helper()
	args := append([]string{"new", "--delegada", delegada, "--fecha", fecha, "--full-day"}, extra...)
	return h.Run(args...)
}

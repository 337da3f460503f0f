package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/klauern/permisync/internal/cli"
)

func TestCLIInitialization(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Run help command to verify CLI initializes correctly
	ctx := context.Background()
	err := cli.Run(ctx, []string{"permisync", "--help"})

	// Restore stdout
	if closeErr := w.Close(); closeErr != nil {
		t.Fatalf("failed to close pipe writer: %v", closeErr)
	}
	os.Stdout = old

	// Read captured output
	var buf bytes.Buffer
	if _, copyErr := io.Copy(&buf, r); copyErr != nil {
		t.Fatalf("failed to read captured output: %v", copyErr)
	}
	output := buf.String()

	if err != nil {
		t.Fatalf("CLI initialization failed: %v", err)
	}

	// Verify help output contains expected content
	if !strings.Contains(output, "permisync") {
		t.Errorf("expected help output to contain 'permisync', got: %q", output)
	}
	if !strings.Contains(output, "USAGE") || !strings.Contains(output, "COMMANDS") {
		t.Errorf("expected help output to contain USAGE and COMMANDS sections, got: %q", output)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/pdiddy/doc2md/pkg/types"
)

// maxCommandStderr bounds how much subprocess stderr is folded into an error.
const maxCommandStderr = 2048

// CommandConverter runs a locally installed markitdown binary as
// `markitdown <path>` and returns its stdout.
type CommandConverter struct {
	binary string
	run    func(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// NewCommandConverter resolves binary on PATH (or as a path) and returns a
// converter that invokes it.
func NewCommandConverter(binary string) (*CommandConverter, error) {
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("markitdown binary %q not available: %w", binary, err)
	}
	return &CommandConverter{binary: resolved, run: runCommand}, nil
}

func runCommand(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Convert runs the binary on path. Empty output is a valid, empty conversion.
func (c *CommandConverter) Convert(ctx context.Context, path string) (types.Result, error) {
	if err := checkInput(path); err != nil {
		return types.Result{}, err
	}

	var stdout, stderr bytes.Buffer
	if err := c.run(ctx, c.binary, []string{path}, &stdout, &stderr); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxCommandStderr {
			msg = "..." + msg[len(msg)-maxCommandStderr:]
		}
		if msg != "" {
			return types.Result{}, fail(path, fmt.Errorf("markitdown: %w: %s", err, msg))
		}
		return types.Result{}, fail(path, fmt.Errorf("markitdown: %w", err))
	}
	return types.Result{Markdown: stdout.String()}, nil
}

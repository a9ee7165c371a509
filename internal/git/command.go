// Package git provides the Git CLI wrapper used by the local source-repository
// oracle backend for walking rust-lang/rust history.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// RunCommand executes a git command in the specified directory and returns its
// trimmed stdout. All failures are wrapped with ErrOracleUnavailable and include
// stderr for debugging.
func RunCommand(ctx context.Context, workDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git %s failed: %s: %w", args[0], strings.TrimSpace(stderr.String()), bisecterrors.ErrOracleUnavailable)
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], bisecterrors.ErrOracleUnavailable)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// RunCommandLines executes a git command and splits its trimmed stdout into
// non-empty lines. Used for commands like `rev-list` that produce one record
// per line.
func RunCommandLines(ctx context.Context, workDir string, args ...string) ([]string, error) {
	out, err := RunCommand(ctx, workDir, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// Package bisect implements the compiler bisection engine: the build-point
// ordering, the artifact catalog, the test driver, the classifier, the
// binary-search bisector, and the orchestrator that drives them together.
package bisect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// ProbeRunner defines the interface for executing one probe of the
// candidate's compiler against the test command. This allows injecting a
// fake runner in tests rather than spawning a real child process.
type ProbeRunner interface {
	// Run executes the probe and returns its exit status and captured output.
	Run(ctx context.Context, req ProbeRequest) (ProbeResult, error)
}

// ProbeRequest describes one invocation of the test driver.
type ProbeRequest struct {
	// ToolchainName is the rustup toolchain name the child should build with.
	ToolchainName string

	// BuildTarget is the host/target triple passed through to the child.
	BuildTarget string

	// TargetDir is the per-run, stable build-output directory.
	TargetDir string

	// Script, when non-empty, is run instead of the project-build command;
	// Args is passed to it as arguments.
	Script string

	// Args is the command-vector tail. Defaults to constants.DefaultProbeCommand
	// when both Script and Args are empty.
	Args []string

	// WorkDir is the directory the child is run in.
	WorkDir string

	// Timeout bounds the child's wall-clock run time. Zero means no timeout.
	Timeout time.Duration
}

// ProbeResult captures the outcome of a single probe.
type ProbeResult struct {
	// TimedOut is true when the child was killed for exceeding Timeout,
	// distinct from a non-zero exit.
	TimedOut bool

	// ExitCode is the child's exit status. Meaningless when TimedOut is true.
	ExitCode int

	// Stdout and Stderr hold the child's captured output.
	Stdout string
	Stderr string
}

// processGraceTimeout is how long the driver waits after sending a
// termination signal to the probe's process group before sending SIGKILL.
const processGraceTimeout = 5 * time.Second

// SubprocessDriver runs probes as real child processes using os/exec. It is
// grounded on the narrow CommandRunner pattern of shelling out with a
// captured stdout/stderr pair, generalized with an explicit child
// environment and wall-clock timeout enforcement.
type SubprocessDriver struct{}

// NewSubprocessDriver constructs a SubprocessDriver.
func NewSubprocessDriver() *SubprocessDriver {
	return &SubprocessDriver{}
}

// Run executes req as a child process and returns its outcome.
func (d *SubprocessDriver) Run(ctx context.Context, req ProbeRequest) (ProbeResult, error) {
	name, args := resolveCommand(req)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // command/args come from configuration or CLI flags, same trust level as a Makefile
	cmd.Dir = req.WorkDir
	cmd.Env = buildEnv(req)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = processGraceTimeout
	cmd.Cancel = func() error {
		return terminateProcessGroup(cmd)
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = io.MultiWriter(&outBuf, os.Stdout)
	cmd.Stderr = io.MultiWriter(&errBuf, os.Stderr)

	runErr := cmd.Run()
	result := ProbeResult{Stdout: outBuf.String(), Stderr: errBuf.String()}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		return result, nil
	case runErr == nil:
		result.ExitCode = 0
		return result, nil
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return ProbeResult{}, fmt.Errorf("%w: %s", bisecterrors.ErrProbeSpawnFailed, runErr)
	}
}

// resolveCommand picks the child executable and argument vector for req,
// per the rule that an explicit script replaces the project-build command
// but the trailing command-vector arguments still follow it.
func resolveCommand(req ProbeRequest) (string, []string) {
	if req.Script != "" {
		return req.Script, req.Args
	}

	args := req.Args
	if len(args) == 0 {
		args = constants.DefaultProbeCommand
	}

	name := args[0]
	rest := args[1:]
	return name, rest
}

// buildEnv constructs the child environment: the caller's environment plus
// the toolchain-override, build-target, and target-directory overrides.
func buildEnv(req ProbeRequest) []string {
	env := os.Environ()
	env = append(env,
		constants.EnvToolchainOverride+"="+req.ToolchainName,
		constants.EnvBuildTarget+"="+req.BuildTarget,
		constants.EnvTargetDir+"="+req.TargetDir,
	)
	return env
}

// terminateProcessGroup sends SIGTERM to the probe's process group. The
// subsequent hard kill, if the group is still alive after WaitDelay, is
// handled by exec.Cmd itself once Cancel returns.
func terminateProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

var _ ProbeRunner = (*SubprocessDriver)(nil)

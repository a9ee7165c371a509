// Package cli provides the command-line interface for rustbisect.
package cli

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/rustbisect/internal/errors"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0
	// ExitError indicates a general error.
	ExitError = 1
	// ExitInvalidInput indicates invalid user input.
	ExitInvalidInput = 2
	// ExitInterrupted indicates the run was aborted by an interrupt signal.
	ExitInterrupted = 130
)

// Output format constants.
const (
	// OutputText is the default human-readable output format.
	OutputText = "text"
	// OutputJSON is the machine-readable JSON output format.
	OutputJSON = "json"
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
}

// AddGlobalFlags adds global flags to a command.
// These flags are available to all subcommands via PersistentFlags.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds global flags to Viper for configuration file and
// environment variable support. The BISECT_ prefix is used for environment
// variables (e.g., BISECT_OUTPUT, BISECT_VERBOSE).
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	// Use Root().PersistentFlags() to find flags defined on the root command,
	// even when called from a subcommand's PersistentPreRunE.
	rootFlags := cmd.Root().PersistentFlags()

	if err := v.BindPFlag("output", rootFlags.Lookup("output")); err != nil {
		return err
	}
	if err := v.BindPFlag("verbose", rootFlags.Lookup("verbose")); err != nil {
		return err
	}
	if err := v.BindPFlag("quiet", rootFlags.Lookup("quiet")); err != nil {
		return err
	}

	// Enable environment variable support with BISECT_ prefix
	v.SetEnvPrefix("BISECT")
	v.AutomaticEnv()

	return nil
}

// ValidOutputFormats returns the list of valid output format values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat checks if the given format is a valid output format.
func IsValidOutputFormat(format string) bool {
	for _, valid := range ValidOutputFormats() {
		if format == valid {
			return true
		}
	}
	return false
}

// ExitCodeForError returns the appropriate exit code for the given error.
// Returns ExitSuccess (0) for nil errors, ExitInvalidInput (2) for user input
// errors (invalid flags, bad arguments), and ExitError (1) for all other errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Check for our custom exit code 2 error wrapper
	if errors.IsExitCode2Error(err) {
		return ExitInvalidInput
	}

	// Check for our custom invalid input error
	if stderrors.Is(err, errors.ErrInvalidOutputFormat) {
		return ExitInvalidInput
	}

	// Check for Cobra flag parsing errors (mutually exclusive flags, unknown flags, etc.)
	errMsg := err.Error()
	if isInvalidInputError(errMsg) {
		return ExitInvalidInput
	}

	return ExitError
}

// isInvalidInputError checks if an error message indicates invalid user input.
// This catches Cobra's built-in flag validation errors.
func isInvalidInputError(errMsg string) bool {
	invalidInputPatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
	}

	for _, pattern := range invalidInputPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// BisectFlags holds the flag surface for the bisection command itself,
// bound on the root command so `rustbisect --start ... --end ... -- cargo
// build` runs without a subcommand.
type BisectFlags struct {
	Start    string
	End      string
	ByCommit bool

	Access string
	Alt    bool
	Host   string
	Target string

	Components   []string
	WithSrc      bool
	WithDev      bool
	WithoutCargo bool

	Script  string
	Timeout time.Duration
	Prompt  bool

	Regress  string
	TermOld  string
	TermNew  string

	Preserve       bool
	PreserveTarget bool
	ForceInstall   bool

	Install string

	PretendToBeStable bool
	TestDir           string
}

// AddBisectFlags adds the bisection flag surface to cmd.
func AddBisectFlags(cmd *cobra.Command, flags *BisectFlags) {
	cmd.Flags().StringVar(&flags.Start, "start", "", "baseline bound: date, release tag, or commit SHA (absent: search backward from --end)")
	cmd.Flags().StringVar(&flags.End, "end", "", "regression bound: date, release tag, or commit SHA (absent: latest published nightly)")
	cmd.Flags().BoolVar(&flags.ByCommit, "by-commit", false, "force per-commit search even when both bounds are dates")

	cmd.Flags().StringVar(&flags.Access, "access", "", "source-repo oracle backend: checkout or github")
	cmd.Flags().BoolVar(&flags.Alt, "alt", false, "select alt-CI artifacts (implies per-commit)")
	cmd.Flags().StringVar(&flags.Host, "host", "", "host triple (default: detected)")
	cmd.Flags().StringVar(&flags.Target, "target", "", "cross-compilation triple whose standard library is installed alongside the host's")

	cmd.Flags().StringSliceVarP(&flags.Components, "component", "c", nil, "extra component to install (repeatable)")
	cmd.Flags().BoolVar(&flags.WithSrc, "with-src", false, "include the rust-src component")
	cmd.Flags().BoolVar(&flags.WithDev, "with-dev", false, "include the rustc-dev and llvm-tools components")
	cmd.Flags().BoolVar(&flags.WithoutCargo, "without-cargo", false, "do not install cargo alongside rustc")

	cmd.Flags().StringVar(&flags.Script, "script", "", "reproducer script to run as the probe command instead of the trailing arguments")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "per-probe wall-clock timeout")
	cmd.Flags().BoolVar(&flags.Prompt, "prompt", false, "ask for an interactive classification after each probe")

	cmd.Flags().StringVar(&flags.Regress, "regress", "", "classifier policy: error, success, ice, non-ice, or non-error")
	cmd.Flags().StringVar(&flags.TermOld, "term-old", "", "custom label for the baseline outcome")
	cmd.Flags().StringVar(&flags.TermNew, "term-new", "", "custom label for the regressed outcome")

	cmd.Flags().BoolVar(&flags.Preserve, "preserve", false, "keep installed toolchains registered instead of cleaning them up")
	cmd.Flags().BoolVar(&flags.PreserveTarget, "preserve-target", false, "keep the probe's build-output directory instead of cleaning it up")
	cmd.Flags().BoolVar(&flags.ForceInstall, "force-install", false, "overwrite a pre-existing same-named toolchain without confirmation")

	cmd.Flags().StringVar(&flags.Install, "install", "", "install the named artifact and exit without bisecting")

	cmd.Flags().BoolVar(&flags.PretendToBeStable, "pretend-to-be-stable", false, "make the installed compiler report a stable-like version")
	cmd.Flags().StringVar(&flags.TestDir, "test-dir", "", "working directory for probes (default: current directory)")
}

// Package constants provides centralized constant values used throughout rustbisect.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by rustbisect for organizing data.
const (
	// BisectHome is the hidden directory name where rustbisect stores toolchains,
	// logs, and the local source-repo clone. This directory is created in the
	// user's home directory unless overridden by TOOLCHAIN_HOME.
	BisectHome = ".rustbisect"

	// ToolchainsDir is the directory name where installed toolchains are stored,
	// relative to the toolchain home.
	ToolchainsDir = "toolchains"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// SourceRepoDir is the directory name for the local first-parent clone of
	// rust-lang/rust used by the checkout oracle backend.
	SourceRepoDir = "rust.git"
)

// ToolchainNamePrefix is prepended to every toolchain name this engine creates.
// The installer refuses to deregister or delete any toolchain whose name does
// not begin with this prefix.
const ToolchainNamePrefix = "rustbisect"

// Artifact server roots.
const (
	// NightlyDistRoot serves dated nightly releases.
	NightlyDistRoot = "https://static.rust-lang.org/dist"

	// CIArtifactRoot serves per-commit CI builds, keyed by commit SHA.
	CIArtifactRoot = "https://ci-artifacts.rust-lang.org/rustc-builds"

	// CIArtifactAltRoot serves the "alt" (sanitizer-enabled) per-commit CI builds.
	CIArtifactAltRoot = "https://ci-artifacts.rust-lang.org/rustc-builds-alt"

	// PerfCIArtifactRoot serves per-rollup-sub-PR CI builds; RollupDownloadTask
	// builds its URLs under it.
	// Only the host triple below is published there.
	PerfCIArtifactRoot = "https://ci-artifacts.rust-lang.org/rustc-builds"

	// PerfCISupportedTriple is the only host triple published under PerfCIArtifactRoot.
	PerfCISupportedTriple = "x86_64-unknown-linux-gnu"
)

// CIRetentionWindowDays is the approximate number of days upstream CI retains
// per-commit artifacts before they are garbage collected.
const CIRetentionWindowDays = 167

// NightlyStdPackagingFloor is the earliest date nightlies were packaged with a
// standalone std component; boundary searches never probe before this date.
var NightlyStdPackagingFloor = time.Date(2015, time.October, 20, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // immutable constant value; time.Date is not a const expression

// ICEMarkers are byte-for-byte, case-sensitive substrings that, when present
// in a probe's captured stdout+stderr, mark it as an internal compiler error
// regardless of exit status.
var ICEMarkers = []string{ //nolint:gochecknoglobals // immutable constant value; slices are not const expressions
	"internal compiler error",
	"has overflowed its stack",
	"compiler unexpectedly panicked",
}

// Timeout and retry configuration defaults.
const (
	// ProcessKillGracePeriod is how long the test driver waits after sending a
	// termination signal to a timed-out probe before sending a hard kill.
	ProcessKillGracePeriod = 5 * time.Second

	// MaxDownloadRetries is the maximum number of download attempts, the
	// first one included, when fetching an artifact or manifest hits a
	// transient network error.
	MaxDownloadRetries = 3

	// InitialDownloadBackoff is the initial backoff duration before the first
	// download retry; subsequent retries back off exponentially from this value.
	InitialDownloadBackoff = 1 * time.Second
)

// Environment variables read by the engine.
const (
	// EnvSourceRepoPath overrides the local path used by the checkout oracle backend.
	EnvSourceRepoPath = "SRC_REPO_PATH"

	// EnvAPIToken authenticates against the hosted GitHub API oracle backend.
	EnvAPIToken = "API_TOKEN"

	// EnvToolchainHome overrides where toolchains, logs, and the source clone live.
	EnvToolchainHome = "TOOLCHAIN_HOME"
)

// Child-probe environment variables set by the test driver.
const (
	// EnvToolchainOverride points the child process at the candidate toolchain.
	EnvToolchainOverride = "TOOLCHAIN_OVERRIDE"

	// EnvBuildTarget carries the host/target triple to the child process.
	EnvBuildTarget = "BUILD_TARGET"

	// EnvTargetDir carries the per-run stable build-output directory.
	EnvTargetDir = "TARGET_DIR"
)

// DefaultProbeCommand is the command tail used when the user supplies neither
// --script nor trailing command arguments.
var DefaultProbeCommand = []string{"build"} //nolint:gochecknoglobals // immutable constant value; slices are not const expressions

// Config defaults applied when a project or global config file doesn't set
// the corresponding key.
const (
	// DefaultClassifierPolicy is the regression-classifier policy used when
	// --regress is not given.
	DefaultClassifierPolicy = "error"

	// DefaultAccessBackend is the source-repo oracle backend used when
	// --access is not given.
	DefaultAccessBackend = "checkout"

	// DefaultDriverTimeout is the maximum duration a single probe may run
	// before the test driver classifies it as timed out.
	DefaultDriverTimeout = 15 * time.Minute

	// DefaultLogLevel is the zerolog level used when neither --verbose nor
	// --quiet is given.
	DefaultLogLevel = "info"
)

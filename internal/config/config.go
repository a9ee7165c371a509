// Package config provides configuration management for rustbisect with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (BISECT_* prefix)
//  3. Project config (.rustbisect.yaml)
//  4. Global config (~/.rustbisect/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/bisect or other internal packages.
package config

import "time"

// Config is the root configuration structure for rustbisect.
// It supplies defaults for any flag the operator does not pass on the
// command line.
type Config struct {
	// Bisect contains settings for the search itself: classifier policy,
	// component selection, and prompt/preserve behavior.
	Bisect BisectConfig `yaml:"bisect" mapstructure:"bisect"`

	// Toolchain contains settings for where installed toolchains live and
	// how installation conflicts are handled.
	Toolchain ToolchainConfig `yaml:"toolchain" mapstructure:"toolchain"`

	// Driver contains settings for running the test command against a probe.
	Driver DriverConfig `yaml:"driver" mapstructure:"driver"`

	// Oracle contains settings for the source-repository oracle backend.
	Oracle OracleConfig `yaml:"oracle" mapstructure:"oracle"`

	// Logging contains settings for the structured logger.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// BisectConfig contains settings for the bisection search.
type BisectConfig struct {
	// Policy selects the classifier policy: error, success, ice, non-ice, or non-error.
	// Default: "error"
	Policy string `yaml:"policy" mapstructure:"policy"`

	// Components lists extra components to install alongside rustc, the
	// host standard library, and cargo (e.g. "rust-src", "rustc-dev").
	Components []string `yaml:"components" mapstructure:"components"`

	// WithSrc includes the rust-src component on every install.
	WithSrc bool `yaml:"with_src" mapstructure:"with_src"`

	// WithDev includes the rustc-dev and llvm-tools components on every install.
	WithDev bool `yaml:"with_dev" mapstructure:"with_dev"`

	// Target is a cross-compilation triple whose standard library is
	// installed alongside the host's. Empty means host-only.
	Target string `yaml:"target,omitempty" mapstructure:"target"`

	// Preserve keeps installed toolchains registered after the run instead
	// of deregistering and deleting them.
	Preserve bool `yaml:"preserve" mapstructure:"preserve"`

	// Prompt asks the operator to classify each probe interactively instead
	// of relying solely on the configured policy.
	Prompt bool `yaml:"prompt" mapstructure:"prompt"`

	// IncludeCargo installs cargo alongside rustc. Default: true.
	IncludeCargo bool `yaml:"include_cargo" mapstructure:"include_cargo"`
}

// ToolchainConfig contains settings for toolchain installation.
type ToolchainConfig struct {
	// Home is the directory where installed toolchains, logs, and the local
	// source-repo clone live. Empty means use the default (~/.rustbisect,
	// or $TOOLCHAIN_HOME if set).
	Home string `yaml:"home,omitempty" mapstructure:"home"`

	// ForceInstall skips the confirmation prompt before installing a
	// toolchain and overwrites a pre-existing same-named installation.
	ForceInstall bool `yaml:"force_install" mapstructure:"force_install"`
}

// DriverConfig contains settings for the test driver.
type DriverConfig struct {
	// Timeout is the maximum duration a single probe may run before being
	// killed and classified as timed out.
	// Default: 15 minutes
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Script is the path to a reproducer script to run against each probe.
	// If empty, the trailing CLI arguments (or the default probe command)
	// are run instead.
	Script string `yaml:"script,omitempty" mapstructure:"script"`
}

// OracleConfig contains settings for the source-repository oracle.
type OracleConfig struct {
	// Access selects the oracle backend: "checkout" (local git clone) or
	// "github" (hosted API).
	// Default: "checkout"
	Access string `yaml:"access" mapstructure:"access"`

	// SourceRepoPath overrides the local clone path used by the checkout
	// backend. Empty means use the default location under the toolchain home.
	SourceRepoPath string `yaml:"source_repo_path,omitempty" mapstructure:"source_repo_path"`
}

// LoggingConfig contains settings for the structured logger. These values
// are loaded and shown by `config show`, but the CLI logger does not read
// them: its level comes from --verbose/--quiet and its file rotation from
// the constants package.
type LoggingConfig struct {
	// Level is the minimum zerolog level to emit: debug, info, warn, or error.
	// Default: "info"
	Level string `yaml:"level" mapstructure:"level"`

	// MaxSizeMB is the size in megabytes at which the log file is rotated.
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated log files to retain.
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`

	// MaxAgeDays is the number of days to retain rotated log files.
	MaxAgeDays int `yaml:"max_age_days" mapstructure:"max_age_days"`

	// Compress enables gzip compression of rotated log files.
	Compress bool `yaml:"compress" mapstructure:"compress"`
}

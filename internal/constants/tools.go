// Package constants provides centralized constant values used throughout rustbisect.
// This file contains tool-related constants for the host tool detection system.
package constants

import "time"

// Tool detection timeout configuration.
const (
	// ToolDetectionTimeout is the maximum duration for detecting all required
	// host tools before an install or bisection run begins.
	ToolDetectionTimeout = 2 * time.Second
)

// Tool names used by the tool detection system.
const (
	// ToolGit is the Git version control system, required by the checkout
	// oracle backend and used to shell out for the local first-parent clone.
	ToolGit = "git"

	// ToolRustup is the rustup toolchain manager, used to register and
	// deregister engine-managed toolchains.
	ToolRustup = "rustup"
)

// Minimum version requirements for required tools.
const (
	// MinVersionGit is the minimum required Git version.
	MinVersionGit = "2.20.0"

	// MinVersionRustup is the minimum required rustup version.
	MinVersionRustup = "1.24.0"
)

// Tool version command arguments.
const (
	// VersionFlagStandard is the standard version flag used by both tools.
	VersionFlagStandard = "--version"
)

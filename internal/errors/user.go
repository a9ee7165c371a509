package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries is the pre-built mapping of sentinel errors to their user-facing messages.
// This single source of truth ensures UserMessage and Actionable stay in sync.
// Using a slice (not a map) because errors.Is() requires proper error chain traversal.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Arguments & bounds
	// ===================
	{
		err: ErrInvalidArgument,
		info: ErrorInfo{
			Message: "An invalid argument was provided.",
			Action:  "Check --help for valid arguments.",
		},
	},
	{
		err: ErrBoundsContradiction,
		info: ErrorInfo{
			Message: "The good and bad bounds do not describe a valid search range.",
			Action:  "Verify --start is strictly earlier than --end and that the regression is reproducible at --end.",
		},
	},
	{
		err: ErrUnresolvableBound,
		info: ErrorInfo{
			Message: "A date, release tag, or commit SHA could not be resolved to a build point.",
			Action:  "Double-check the bound against the release history or commit log.",
		},
	},
	{
		err: ErrBoundaryNotFound,
		info: ErrorInfo{
			Message: "Could not find a nightly further back where the regression is absent.",
			Action:  "Supply --start explicitly with a known-good build point.",
		},
	},
	{
		err: ErrNoRegressionInRange,
		info: ErrorInfo{
			Message: "Every build point probed in the range produced the same result.",
			Action:  "Widen the range or verify the regression reproduces at --end.",
		},
	},
	{
		err: ErrAllCandidatesSkipped,
		info: ErrorInfo{
			Message: "Every candidate in the search range was skipped.",
			Action:  "Adjust --script so it can classify at least one candidate in range.",
		},
	},

	// ===================
	// Artifacts & installer
	// ===================
	{
		err: ErrArtifactNotFound,
		info: ErrorInfo{
			Message: "The requested build artifact is not published for this target.",
			Action:  "Check the host triple and build point, or try a nearby date.",
		},
	},
	{
		err: ErrArtifactExpired,
		info: ErrorInfo{
			Message: "The requested per-commit CI artifact has been garbage collected upstream.",
			Action:  "Fall back to the nearest nightly, or use a release-tag bound instead.",
		},
	},
	{
		err: ErrDownloadFailed,
		info: ErrorInfo{
			Message: "Downloading an artifact or manifest failed after retries.",
			Action:  "Check your network connection and try again.",
		},
	},
	{
		err: ErrCorruptArchive,
		info: ErrorInfo{
			Message: "A downloaded archive failed checksum verification or could not be extracted.",
			Action:  "Retry the download; if it persists, the upstream artifact may be corrupt.",
		},
	},
	{
		err: ErrToolchainNameConflict,
		info: ErrorInfo{
			Message: "A toolchain with this name is already registered.",
			Action:  "Use --force-install to replace it, or remove it with rustup first.",
		},
	},
	{
		err: ErrToolchainNotManaged,
		info: ErrorInfo{
			Message: "Refusing to modify a toolchain this engine did not install.",
			Action:  "Only toolchains with the reserved name prefix can be deregistered.",
		},
	},
	{
		err: ErrInstallFailed,
		info: ErrorInfo{
			Message: "rustup failed to register the extracted toolchain.",
			Action:  "Verify rustup is installed and writable; check its diagnostic output above.",
		},
	},

	// ===================
	// Test driver
	// ===================
	{
		err: ErrProbeSpawnFailed,
		info: ErrorInfo{
			Message: "The probe command could not be started.",
			Action:  "Check that --script or the trailing command exists and is executable.",
		},
	},
	{
		err: ErrProbeTimeout,
		info: ErrorInfo{
			Message: "The probe command exceeded its timeout and was terminated.",
			Action:  "Increase --timeout if the command is simply slow.",
		},
	},

	// ===================
	// Source-repo oracle
	// ===================
	{
		err: ErrOracleUnavailable,
		info: ErrorInfo{
			Message: "The source repository oracle could not answer a history query.",
			Action:  "Check the local checkout or access token, depending on the configured backend.",
		},
	},
	{
		err: ErrRepoCloneFailed,
		info: ErrorInfo{
			Message: "The local first-parent clone could not be created or updated.",
			Action:  "Check network access and disk space, then retry.",
		},
	},
	{
		err: ErrMissingAPIToken,
		info: ErrorInfo{
			Message: "An access token is required for the hosted oracle backend.",
			Action:  "Set the access token environment variable or switch to the local checkout backend.",
		},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "Could not acquire the source repository lock.",
			Action:  "Wait and try again, or check for a stuck process holding the lock.",
		},
	},

	// ===================
	// Configuration & tools
	// ===================
	{
		err: ErrMissingRequiredTools,
		info: ErrorInfo{
			Message: "Required tools are missing or outdated.",
			Action:  "Install git and rustup, then retry.",
		},
	},
	{
		err: ErrConfigNotFound,
		info: ErrorInfo{
			Message: "Configuration file not found.",
			Action:  "Create a .rustbisect.yaml file in the project root, or rely on defaults.",
		},
	},
	{
		err: ErrConfigInvalid,
		info: ErrorInfo{
			Message: "A configuration value failed validation.",
			Action:  "Check the configuration file for invalid values.",
		},
	},
	{
		err: ErrUnknownClassification,
		info: ErrorInfo{
			Message: "The classification policy name is not recognized.",
			Action:  "Use one of: error, success, ice, non-ice, non-error.",
		},
	},
	{
		err: ErrEmptyValue,
		info: ErrorInfo{
			Message: "A required value was not provided.",
			Action:  "Provide the required value and try again.",
		},
	},

	// ===================
	// Interaction & cancellation
	// ===================
	{
		err: ErrOperationCanceled,
		info: ErrorInfo{
			Message: "Operation was canceled.",
			Action:  "",
		},
	},
	{
		err: ErrNonInteractiveMode,
		info: ErrorInfo{
			Message: "This operation requires confirmation in non-interactive mode.",
			Action:  "Use --force-install to skip confirmation.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "An invalid output format was specified.",
			Action:  "Use --output text or --output json.",
		},
	},
}

// errorInfoMap provides O(1) lookup for direct sentinel error matches.
// Built once from errorInfoEntries during package initialization.
//
//nolint:gochecknoglobals // Pre-built mapping for O(1) lookup performance
var errorInfoMap = buildErrorInfoMap()

// buildErrorInfoMap creates a map from the errorInfoEntries slice.
// This is called once during package init for O(1) direct lookups.
func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// It first tries O(1) direct map lookup for unwrapped sentinel errors,
// then falls back to errors.Is() traversal for wrapped errors.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// This function maps sentinel errors to helpful, actionable messages
// that are suitable for display to end users.
//
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve or work around the issue.
//
// For errors that are not recoverable or have no clear action, the action
// string will be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}

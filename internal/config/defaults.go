package config

import (
	"github.com/mrz1836/rustbisect/internal/constants"
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files, environment variables, and CLI flags.
func DefaultConfig() *Config {
	return &Config{
		Bisect: BisectConfig{
			// Policy: "error" treats any non-zero exit as Regressed, which
			// matches the common "this used to build, now it doesn't" case.
			Policy: constants.DefaultClassifierPolicy,

			// Components: empty means rustc, the host standard library, and
			// cargo only.
			Components: nil,

			WithSrc: false,
			WithDev: false,
			Target:  "",

			Preserve: false,
			Prompt:   false,

			// IncludeCargo: true since most reproducers are built with cargo.
			IncludeCargo: true,
		},
		Toolchain: ToolchainConfig{
			Home:         "",
			ForceInstall: false,
		},
		Driver: DriverConfig{
			// Timeout: 15 minutes accommodates a full debug build of most
			// reproducers without masking a genuine hang.
			Timeout: constants.DefaultDriverTimeout,
			Script:  "",
		},
		Oracle: OracleConfig{
			// Access: "checkout" needs no API token and works offline once
			// the local clone exists.
			Access:         constants.DefaultAccessBackend,
			SourceRepoPath: "",
		},
		Logging: LoggingConfig{
			Level:      constants.DefaultLogLevel,
			MaxSizeMB:  constants.LogMaxSizeMB,
			MaxBackups: constants.LogMaxBackups,
			MaxAgeDays: constants.LogMaxAgeDays,
			Compress:   constants.LogCompress,
		},
	}
}

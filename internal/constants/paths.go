package constants

// Log file names.
const (
	// CLILogFileName is the name of the global run log file.
	// This file is located in ~/.rustbisect/logs/rustbisect.log
	CLILogFileName = "rustbisect.log"
)

// Configuration file names.
const (
	// GlobalConfigName is the name of the global rustbisect configuration file.
	// This file is located in the rustbisect home directory.
	GlobalConfigName = "config.yaml"

	// ProjectConfigName is the name of the project-specific rustbisect configuration file.
	// This file is located in the project root directory.
	ProjectConfigName = ".rustbisect.yaml"
)

// Log file rotation defaults, applied to the lumberjack writer backing the
// global CLI log.
const (
	// LogMaxSizeMB is the size in megabytes at which the log file is rotated.
	LogMaxSizeMB = 20

	// LogMaxBackups is the number of rotated log files to retain.
	LogMaxBackups = 5

	// LogMaxAgeDays is the number of days to retain rotated log files.
	LogMaxAgeDays = 30

	// LogCompress enables gzip compression of rotated log files.
	LogCompress = true
)

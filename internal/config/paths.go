package config

import (
	"os"
	"path/filepath"

	"github.com/mrz1836/rustbisect/internal/constants"
	"github.com/mrz1836/rustbisect/internal/errors"
)

// toolchainHomeDir returns the rustbisect home directory: $TOOLCHAIN_HOME if
// set, otherwise ~/.rustbisect.
func toolchainHomeDir() (string, error) {
	if home := os.Getenv(constants.EnvToolchainHome); home != "" {
		return home, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.BisectHome), nil
}

// ToolchainHomeDir returns the rustbisect home directory: $TOOLCHAIN_HOME if
// set, otherwise ~/.rustbisect. This is where installed toolchains, logs,
// and the local source-repo clone all live.
func ToolchainHomeDir() (string, error) {
	return toolchainHomeDir()
}

// GlobalConfigPath returns the full path to the global configuration file,
// typically ~/.rustbisect/config.yaml.
func GlobalConfigPath() (string, error) {
	dir, err := toolchainHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get global config path")
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns the path to the project-specific configuration
// file, .rustbisect.yaml relative to the current working directory.
func ProjectConfigPath() string {
	return constants.ProjectConfigName
}

package config

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/mrz1836/rustbisect/internal/errors"
)

// newViperInstance creates a new Viper instance with standard rustbisect
// configuration: the BISECT_ environment variable prefix, a key replacer,
// and built-in defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BISECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not
// found error. This consolidates the common pattern of checking for a
// missing, optional config file.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (BISECT_* prefix)
//  2. Project config (.rustbisect.yaml)
//  3. Global config (~/.rustbisect/config.yaml)
//  4. Built-in defaults
//
// For CLI flag overrides, use LoadWithOverrides instead.
//
// The function returns an error only for actual configuration problems, not
// for missing config files, which are expected in most invocations.
func Load() (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}

	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(v)
}

// unmarshalAndValidate unmarshals viper config into a Config struct and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// loadGlobalConfig attempts to load the global config file (~/.rustbisect/config.yaml).
// Returns nil if the file doesn't exist or the home directory cannot be determined.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, ok := getGlobalConfigPathIfExists()
	if !ok {
		return nil
	}

	v.SetConfigFile(globalConfigPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// getGlobalConfigPathIfExists returns the global config path if it exists.
func getGlobalConfigPathIfExists() (string, bool) {
	globalPath, err := GlobalConfigPath()
	if err != nil {
		return "", false
	}

	if _, err := os.Stat(globalPath); err != nil {
		return "", false
	}

	return globalPath, true
}

// loadProjectConfig attempts to load the project config file (.rustbisect.yaml).
// Returns nil if the file doesn't exist.
func loadProjectConfig(v *viper.Viper) error {
	projectConfigPath := ProjectConfigPath()
	if !fileExists(projectConfigPath) {
		return nil
	}

	v.SetConfigFile(projectConfigPath)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// The overrides parameter contains values from CLI flags, which have the
// highest precedence in the configuration hierarchy.
//
// Only non-zero values in overrides are applied, so callers can pass a
// Config built solely from the flags that were actually set.
func LoadWithOverrides(overrides *Config) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}

	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths, for testing.
// Either path can be empty to skip that level.
func LoadFromPaths(projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// setDefaults configures all default values on the Viper instance. These
// defaults match the values from DefaultConfig.
// IMPORTANT: keys must match the YAML tag names exactly for proper mapping.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("bisect.policy", d.Bisect.Policy)
	v.SetDefault("bisect.components", []string{})
	v.SetDefault("bisect.with_src", d.Bisect.WithSrc)
	v.SetDefault("bisect.with_dev", d.Bisect.WithDev)
	v.SetDefault("bisect.preserve", d.Bisect.Preserve)
	v.SetDefault("bisect.prompt", d.Bisect.Prompt)
	v.SetDefault("bisect.include_cargo", d.Bisect.IncludeCargo)

	v.SetDefault("toolchain.force_install", d.Toolchain.ForceInstall)

	v.SetDefault("driver.timeout", d.Driver.Timeout)

	v.SetDefault("oracle.access", d.Oracle.Access)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
}

// applyOverrides merges non-zero override values into the config. Only
// non-zero values are applied to allow partial overrides.
//
// IMPORTANT: bool fields (WithSrc, WithDev, Preserve, Prompt, IncludeCargo,
// ForceInstall) cannot be overridden to false using this function because
// Go's zero value for bool is false, making it impossible to distinguish
// "explicitly set to false" from "not set". CLI implementations should
// handle boolean flags separately via cmd.Flags().Changed(...).
func applyOverrides(cfg, overrides *Config) {
	if overrides.Bisect.Policy != "" {
		cfg.Bisect.Policy = overrides.Bisect.Policy
	}
	if len(overrides.Bisect.Components) > 0 {
		cfg.Bisect.Components = overrides.Bisect.Components
	}
	if overrides.Bisect.Target != "" {
		cfg.Bisect.Target = overrides.Bisect.Target
	}
	if overrides.Bisect.WithSrc {
		cfg.Bisect.WithSrc = true
	}
	if overrides.Bisect.WithDev {
		cfg.Bisect.WithDev = true
	}
	if overrides.Bisect.Preserve {
		cfg.Bisect.Preserve = true
	}
	if overrides.Bisect.Prompt {
		cfg.Bisect.Prompt = true
	}

	if overrides.Toolchain.Home != "" {
		cfg.Toolchain.Home = overrides.Toolchain.Home
	}
	if overrides.Toolchain.ForceInstall {
		cfg.Toolchain.ForceInstall = true
	}

	if overrides.Driver.Timeout != 0 {
		cfg.Driver.Timeout = overrides.Driver.Timeout
	}
	if overrides.Driver.Script != "" {
		cfg.Driver.Script = overrides.Driver.Script
	}

	if overrides.Oracle.Access != "" {
		cfg.Oracle.Access = overrides.Oracle.Access
	}
	if overrides.Oracle.SourceRepoPath != "" {
		cfg.Oracle.SourceRepoPath = overrides.Oracle.SourceRepoPath
	}

	if overrides.Logging.Level != "" {
		cfg.Logging.Level = overrides.Logging.Level
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal. This
// configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

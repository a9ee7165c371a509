package config

import (
	"github.com/mrz1836/rustbisect/internal/errors"
)

// validClassifierPolicies enumerates the classifier policies accepted by
// --regress and the config file's bisect.policy key.
var validClassifierPolicies = map[string]bool{ //nolint:gochecknoglobals // fixed closed enumeration, not mutated after init
	"error":     true,
	"success":   true,
	"ice":       true,
	"non-ice":   true,
	"non-error": true,
}

// validAccessBackends enumerates the source-repo oracle backends accepted by
// --access and the config file's oracle.access key.
var validAccessBackends = map[string]bool{ //nolint:gochecknoglobals // fixed closed enumeration, not mutated after init
	"checkout": true,
	"github":   true,
}

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigInvalid
	}

	if err := validateBisectConfig(&cfg.Bisect); err != nil {
		return err
	}

	if err := validateDriverConfig(&cfg.Driver); err != nil {
		return err
	}

	if err := validateOracleConfig(&cfg.Oracle); err != nil {
		return err
	}

	return nil
}

// validateBisectConfig checks bisection-specific configuration values.
func validateBisectConfig(cfg *BisectConfig) error {
	if !validClassifierPolicies[cfg.Policy] {
		return errors.Wrapf(errors.ErrUnknownClassification,
			"bisect.policy must be one of error, success, ice, non-ice, non-error, got %q", cfg.Policy)
	}
	return nil
}

// validateDriverConfig checks test-driver configuration values.
func validateDriverConfig(cfg *DriverConfig) error {
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"driver.timeout must be positive, got %s", cfg.Timeout)
	}
	return nil
}

// validateOracleConfig checks source-repo oracle configuration values.
func validateOracleConfig(cfg *OracleConfig) error {
	if !validAccessBackends[cfg.Access] {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"oracle.access must be one of checkout, github, got %q", cfg.Access)
	}
	return nil
}

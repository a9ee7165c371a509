// Package cli provides the command-line interface for rustbisect.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mrz1836/rustbisect/internal/config"
	"github.com/mrz1836/rustbisect/internal/errors"
)

// ConfigShowFlags holds flags specific to the config show command.
type ConfigShowFlags struct {
	// OutputFormat specifies the output format (yaml or json).
	OutputFormat string
}

// newConfigShowCmd creates the 'config show' subcommand for displaying configuration.
func newConfigShowCmd(flags *ConfigShowFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display the effective rustbisect configuration with source annotations.

Shows the current configuration values and indicates where each value comes from:
  - default: Built-in default value
  - global: From ~/.rustbisect/config.yaml
  - project: From .rustbisect.yaml
  - env: From BISECT_* environment variable

Sensitive values (API tokens) are masked in the output.

Examples:
  rustbisect config show                  # Display config in YAML format with sources
  rustbisect config show --output json    # Display config in JSON format`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd.Context(), cmd.OutOrStdout(), flags)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", "yaml", "output format (yaml or json)")

	return cmd
}

// AddConfigShowCommand adds the show subcommand to the config command.
func AddConfigShowCommand(configCmd *cobra.Command) {
	flags := &ConfigShowFlags{}
	configCmd.AddCommand(newConfigShowCmd(flags))
}

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value is a built-in default.
	SourceDefault ConfigSource = "default"
	// SourceGlobal indicates the value came from global config.
	SourceGlobal ConfigSource = "global"
	// SourceProject indicates the value came from project config.
	SourceProject ConfigSource = "project"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
)

// ConfigValueWithSource represents a configuration value with its source.
type ConfigValueWithSource struct {
	Value  any          `json:"value" yaml:"value"`
	Source ConfigSource `json:"source" yaml:"source"`
}

// AnnotatedConfig represents configuration with source annotations.
type AnnotatedConfig struct {
	Bisect    map[string]ConfigValueWithSource `json:"bisect" yaml:"bisect"`
	Toolchain map[string]ConfigValueWithSource `json:"toolchain" yaml:"toolchain"`
	Driver    map[string]ConfigValueWithSource `json:"driver" yaml:"driver"`
	Oracle    map[string]ConfigValueWithSource `json:"oracle" yaml:"oracle"`
	Logging   map[string]ConfigValueWithSource `json:"logging" yaml:"logging"`
}

// configShowStyles contains styling for the config show command output.
type configShowStyles struct {
	header    lipgloss.Style
	section   lipgloss.Style
	key       lipgloss.Style
	value     lipgloss.Style
	sourceEnv lipgloss.Style
	sourcePrj lipgloss.Style
	sourceGbl lipgloss.Style
	sourceDef lipgloss.Style
	masked    lipgloss.Style
	dim       lipgloss.Style
}

// newConfigShowStyles creates styles for config show command output.
func newConfigShowStyles() *configShowStyles {
	return &configShowStyles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D7FF")).
			MarginBottom(1),
		section: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")),
		key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D7FF")),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")),
		sourceEnv: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")), // Red for env (highest precedence)
		sourcePrj: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")), // Yellow for project
		sourceGbl: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF87")), // Green for global
		sourceDef: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")), // Gray for default
		masked: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")),
	}
}

// runConfigShow executes the config show command.
func runConfigShow(ctx context.Context, w io.Writer, flags *ConfigShowFlags) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	annotated := buildAnnotatedConfig(cfg)

	switch strings.ToLower(flags.OutputFormat) {
	case "json":
		return outputJSON(w, annotated)
	case "yaml":
		return outputYAML(w, annotated)
	default:
		return fmt.Errorf("%w: %s (use yaml or json)", errors.ErrInvalidOutputFormat, flags.OutputFormat)
	}
}

// buildAnnotatedConfig creates an annotated configuration with source information.
func buildAnnotatedConfig(cfg *config.Config) *AnnotatedConfig {
	globalCfg := loadGlobalConfigOnly()
	projectCfg := loadProjectConfigOnly()

	annotated := &AnnotatedConfig{
		Bisect:    make(map[string]ConfigValueWithSource),
		Toolchain: make(map[string]ConfigValueWithSource),
		Driver:    make(map[string]ConfigValueWithSource),
		Oracle:    make(map[string]ConfigValueWithSource),
		Logging:   make(map[string]ConfigValueWithSource),
	}

	annotated.Bisect["policy"] = determineSource("bisect.policy", cfg.Bisect.Policy, globalCfg, projectCfg)
	annotated.Bisect["components"] = determineSource("bisect.components", cfg.Bisect.Components, globalCfg, projectCfg)
	annotated.Bisect["with_src"] = determineSource("bisect.with_src", cfg.Bisect.WithSrc, globalCfg, projectCfg)
	annotated.Bisect["with_dev"] = determineSource("bisect.with_dev", cfg.Bisect.WithDev, globalCfg, projectCfg)
	annotated.Bisect["target"] = determineSource("bisect.target", cfg.Bisect.Target, globalCfg, projectCfg)
	annotated.Bisect["preserve"] = determineSource("bisect.preserve", cfg.Bisect.Preserve, globalCfg, projectCfg)
	annotated.Bisect["prompt"] = determineSource("bisect.prompt", cfg.Bisect.Prompt, globalCfg, projectCfg)
	annotated.Bisect["include_cargo"] = determineSource("bisect.include_cargo", cfg.Bisect.IncludeCargo, globalCfg, projectCfg)

	annotated.Toolchain["home"] = determineSource("toolchain.home", cfg.Toolchain.Home, globalCfg, projectCfg)
	annotated.Toolchain["force_install"] = determineSource("toolchain.force_install", cfg.Toolchain.ForceInstall, globalCfg, projectCfg)

	annotated.Driver["timeout"] = determineSource("driver.timeout", cfg.Driver.Timeout.String(), globalCfg, projectCfg)
	annotated.Driver["script"] = determineSource("driver.script", cfg.Driver.Script, globalCfg, projectCfg)

	annotated.Oracle["access"] = determineSource("oracle.access", cfg.Oracle.Access, globalCfg, projectCfg)
	annotated.Oracle["source_repo_path"] = determineSource("oracle.source_repo_path", cfg.Oracle.SourceRepoPath, globalCfg, projectCfg)

	annotated.Logging["level"] = determineSource("logging.level", cfg.Logging.Level, globalCfg, projectCfg)
	annotated.Logging["max_size_mb"] = determineSource("logging.max_size_mb", cfg.Logging.MaxSizeMB, globalCfg, projectCfg)
	annotated.Logging["max_backups"] = determineSource("logging.max_backups", cfg.Logging.MaxBackups, globalCfg, projectCfg)
	annotated.Logging["max_age_days"] = determineSource("logging.max_age_days", cfg.Logging.MaxAgeDays, globalCfg, projectCfg)
	annotated.Logging["compress"] = determineSource("logging.compress", cfg.Logging.Compress, globalCfg, projectCfg)

	return annotated
}

// configValues represents parsed config values for source determination.
type configValues map[string]any

// loadGlobalConfigOnly loads only the global config for source comparison.
func loadGlobalConfigOnly() configValues {
	globalPath, err := config.GlobalConfigPath()
	if err != nil {
		return nil
	}
	return loadConfigFile(globalPath)
}

// loadProjectConfigOnly loads only the project config for source comparison.
func loadProjectConfigOnly() configValues {
	return loadConfigFile(config.ProjectConfigPath())
}

// loadConfigFile loads a config file into a map for source determination.
func loadConfigFile(path string) configValues {
	data, err := os.ReadFile(path) //nolint:gosec // Config file path
	if err != nil {
		return nil
	}

	result := make(configValues)
	lines := strings.Split(string(data), "\n")
	currentSection := ""

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, ":") && !strings.Contains(line[:len(line)-1], " ") {
			currentSection = strings.TrimSuffix(line, ":")
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if currentSection != "" {
				result[currentSection+"."+key] = value
			} else {
				result[key] = value
			}
		}
	}

	return result
}

// determineSource determines where a configuration value came from.
func determineSource(key string, value any, globalCfg, projectCfg configValues) ConfigValueWithSource {
	envKey := "BISECT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if envVal := os.Getenv(envKey); envVal != "" {
		return ConfigValueWithSource{Value: value, Source: SourceEnv}
	}

	if projectCfg != nil {
		if _, exists := projectCfg[key]; exists {
			return ConfigValueWithSource{Value: value, Source: SourceProject}
		}
	}

	if globalCfg != nil {
		if _, exists := globalCfg[key]; exists {
			return ConfigValueWithSource{Value: value, Source: SourceGlobal}
		}
	}

	return ConfigValueWithSource{Value: value, Source: SourceDefault}
}

// outputJSON outputs the configuration in JSON format.
func outputJSON(w io.Writer, annotated *AnnotatedConfig) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(annotated)
}

// outputYAML outputs the configuration in YAML format with source comments.
func outputYAML(w io.Writer, annotated *AnnotatedConfig) error {
	styles := newConfigShowStyles()

	_, _ = fmt.Fprintln(w, styles.header.Render("Effective rustbisect Configuration"))
	_, _ = fmt.Fprintln(w, styles.dim.Render(strings.Repeat("-", 50)))
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, styles.dim.Render("Sources: ")+
		styles.sourceEnv.Render("env")+" > "+
		styles.sourcePrj.Render("project")+" > "+
		styles.sourceGbl.Render("global")+" > "+
		styles.sourceDef.Render("default"))
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, styles.section.Render("bisect:"))
	printConfigValue(w, styles, "  policy", annotated.Bisect["policy"])
	printConfigValue(w, styles, "  components", annotated.Bisect["components"])
	printConfigValue(w, styles, "  with_src", annotated.Bisect["with_src"])
	printConfigValue(w, styles, "  with_dev", annotated.Bisect["with_dev"])
	printConfigValue(w, styles, "  target", annotated.Bisect["target"])
	printConfigValue(w, styles, "  preserve", annotated.Bisect["preserve"])
	printConfigValue(w, styles, "  prompt", annotated.Bisect["prompt"])
	printConfigValue(w, styles, "  include_cargo", annotated.Bisect["include_cargo"])
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, styles.section.Render("toolchain:"))
	printConfigValue(w, styles, "  home", annotated.Toolchain["home"])
	printConfigValue(w, styles, "  force_install", annotated.Toolchain["force_install"])
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, styles.section.Render("driver:"))
	printConfigValue(w, styles, "  timeout", annotated.Driver["timeout"])
	printConfigValue(w, styles, "  script", annotated.Driver["script"])
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, styles.section.Render("oracle:"))
	printConfigValue(w, styles, "  access", annotated.Oracle["access"])
	printConfigValue(w, styles, "  source_repo_path", annotated.Oracle["source_repo_path"])
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, styles.section.Render("logging:"))
	printConfigValue(w, styles, "  level", annotated.Logging["level"])
	printConfigValue(w, styles, "  max_size_mb", annotated.Logging["max_size_mb"])
	printConfigValue(w, styles, "  max_backups", annotated.Logging["max_backups"])
	printConfigValue(w, styles, "  max_age_days", annotated.Logging["max_age_days"])
	printConfigValue(w, styles, "  compress", annotated.Logging["compress"])
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, styles.dim.Render("Configuration files:"))
	if globalPath, err := config.GlobalConfigPath(); err == nil {
		if _, statErr := os.Stat(globalPath); statErr == nil {
			_, _ = fmt.Fprintln(w, styles.dim.Render("  Global: ")+styles.sourceGbl.Render(globalPath))
		} else {
			_, _ = fmt.Fprintln(w, styles.dim.Render("  Global: ")+styles.dim.Render(globalPath+" (not found)"))
		}
	}

	projectPath := config.ProjectConfigPath()
	if _, err := os.Stat(projectPath); err == nil {
		absPath, _ := filepath.Abs(projectPath)
		_, _ = fmt.Fprintln(w, styles.dim.Render("  Project: ")+styles.sourcePrj.Render(absPath))
	} else {
		_, _ = fmt.Fprintln(w, styles.dim.Render("  Project: ")+styles.dim.Render(projectPath+" (not found)"))
	}

	return nil
}

// printConfigValue prints a configuration value with its source annotation.
func printConfigValue(w io.Writer, styles *configShowStyles, key string, vs ConfigValueWithSource) {
	valueStr := formatConfigValue(vs.Value)
	valueStr = maskSensitiveValue(key, valueStr, vs.Source, styles)
	sourceStyle := getSourceStyle(vs.Source, styles)

	_, _ = fmt.Fprintf(w, "%s: %s  %s\n",
		styles.key.Render(key),
		styles.value.Render(valueStr),
		sourceStyle.Render("# "+string(vs.Source)))
}

// formatConfigValue converts a configuration value to a displayable string.
func formatConfigValue(value any) string {
	switch v := value.(type) {
	case string:
		if v == "" {
			return "(not set)"
		}
		return v
	case []string:
		if len(v) == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%s]", strings.Join(v, ", "))
	case []any:
		if len(v) == 0 {
			return "[]"
		}
		strs := make([]string, len(v))
		for i, item := range v {
			strs[i] = fmt.Sprintf("%v", item)
		}
		return fmt.Sprintf("[%s]", strings.Join(strs, ", "))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// maskSensitiveValue masks sensitive values like API tokens.
func maskSensitiveValue(key, valueStr string, source ConfigSource, styles *configShowStyles) string {
	lowerKey := strings.ToLower(key)
	isSensitive := strings.Contains(lowerKey, "key") ||
		strings.Contains(lowerKey, "secret") ||
		strings.Contains(lowerKey, "token") ||
		strings.Contains(lowerKey, "password")

	if !isSensitive {
		return valueStr
	}

	if source == SourceEnv && valueStr != "(not set)" && valueStr != "" {
		return styles.masked.Render("****")
	}

	return valueStr
}

// getSourceStyle returns the appropriate style for a config source.
func getSourceStyle(source ConfigSource, styles *configShowStyles) lipgloss.Style {
	switch source {
	case SourceEnv:
		return styles.sourceEnv
	case SourceProject:
		return styles.sourcePrj
	case SourceGlobal:
		return styles.sourceGbl
	case SourceDefault:
		return styles.sourceDef
	default:
		return styles.sourceDef
	}
}

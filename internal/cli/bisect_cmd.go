package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/rustbisect/internal/bisect"
	"github.com/mrz1836/rustbisect/internal/config"
	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
	"github.com/mrz1836/rustbisect/internal/installer"
	"github.com/mrz1836/rustbisect/internal/oracle"
	"github.com/mrz1836/rustbisect/internal/tui"
)

// shaBoundPattern matches a commit-SHA bound: 7 to 40 hex characters.
var shaBoundPattern = regexp.MustCompile(`^[0-9a-f]{7,40}$`) //nolint:gochecknoglobals // compiled once for performance

// dateBoundPattern matches a date bound: YYYY-MM-DD.
var dateBoundPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`) //nolint:gochecknoglobals // compiled once for performance

// parseBound converts a --start/--end/--install argument into a BoundSpec,
// trying the date and SHA forms before falling back to a release tag.
func parseBound(raw string) (bisect.BoundSpec, error) {
	switch {
	case dateBoundPattern.MatchString(raw):
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return bisect.BoundSpec{}, fmt.Errorf("%w: %q is not a valid date: %v", bisecterrors.ErrInvalidArgument, raw, err)
		}
		return bisect.DateBound(d), nil
	case shaBoundPattern.MatchString(raw):
		return bisect.ShaBound(raw), nil
	case raw == "":
		return bisect.BoundSpec{}, fmt.Errorf("%w: bound must not be empty", bisecterrors.ErrInvalidArgument)
	default:
		return bisect.ReleaseTagBound(raw), nil
	}
}

// hostTriples maps the GOOS/GOARCH pairs this binary is built for onto the
// target triple rustup/rust-lang's CI artifacts are published under.
var hostTriples = map[string]string{ //nolint:gochecknoglobals // static lookup table
	"linux/amd64":   "x86_64-unknown-linux-gnu",
	"linux/arm64":   "aarch64-unknown-linux-gnu",
	"darwin/amd64":  "x86_64-apple-darwin",
	"darwin/arm64":  "aarch64-apple-darwin",
	"windows/amd64": "x86_64-pc-windows-msvc",
	"windows/arm64": "aarch64-pc-windows-msvc",
}

// detectHostTriple reports the host triple for the platform this binary is
// running on, used to default --host when the operator does not pass one.
func detectHostTriple() (string, error) {
	key := runtime.GOOS + "/" + runtime.GOARCH
	triple, ok := hostTriples[key]
	if !ok {
		return "", fmt.Errorf("%w: no known host triple for %s", bisecterrors.ErrInvalidArgument, key)
	}
	return triple, nil
}

// changedOverrides builds a *config.Config carrying only the fields whose
// flags the operator actually set on cmd, per config.LoadWithOverrides'
// documented inability to distinguish an unset bool from an explicit false.
func changedOverrides(cmd *cobra.Command, flags *BisectFlags) *config.Config {
	overrides := &config.Config{}
	changed := cmd.Flags().Changed

	if changed("regress") {
		overrides.Bisect.Policy = flags.Regress
	}
	if changed("component") {
		overrides.Bisect.Components = flags.Components
	}
	if changed("target") {
		overrides.Bisect.Target = flags.Target
	}
	if changed("with-src") {
		overrides.Bisect.WithSrc = flags.WithSrc
	}
	if changed("with-dev") {
		overrides.Bisect.WithDev = flags.WithDev
	}
	if changed("preserve") {
		overrides.Bisect.Preserve = flags.Preserve
	}
	if changed("prompt") {
		overrides.Bisect.Prompt = flags.Prompt
	}
	if changed("without-cargo") {
		overrides.Bisect.IncludeCargo = !flags.WithoutCargo
	}
	if changed("force-install") {
		overrides.Toolchain.ForceInstall = flags.ForceInstall
	}
	if changed("timeout") {
		overrides.Driver.Timeout = flags.Timeout
	}
	if changed("script") {
		overrides.Driver.Script = flags.Script
	}
	if changed("access") {
		overrides.Oracle.Access = flags.Access
	}

	return overrides
}

// resolvedConfig merges persisted configuration with the flags the operator
// actually changed on cmd, applying the bool-override workaround manually.
func resolvedConfig(cmd *cobra.Command, flags *BisectFlags) (*config.Config, error) {
	cfg, err := config.LoadWithOverrides(changedOverrides(cmd, flags))
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if !cmd.Flags().Changed("without-cargo") {
		// IncludeCargo defaults to true; LoadWithOverrides cannot express
		// "leave it alone" for a bool field that was never Changed, so only
		// the explicit --without-cargo path below ever flips it to false.
		cfg.Bisect.IncludeCargo = true
	} else {
		cfg.Bisect.IncludeCargo = !flags.WithoutCargo
	}

	return cfg, nil
}

// buildOracle constructs the source-repo oracle for the selected --access
// backend.
func buildOracle(cfg *config.Config) (oracle.Oracle, error) {
	switch cfg.Oracle.Access {
	case string(oracle.BackendGitHub):
		return oracle.NewGitHubOracle()
	case string(oracle.BackendCheckout):
		repoPath := cfg.Oracle.SourceRepoPath
		if repoPath == "" {
			repoPath = os.Getenv(constants.EnvSourceRepoPath)
		}
		if repoPath == "" {
			home, err := config.ToolchainHomeDir()
			if err != nil {
				return nil, err
			}
			repoPath = filepath.Join(home, constants.SourceRepoDir)
		}
		return oracle.NewCheckoutOracle(repoPath), nil
	default:
		return nil, fmt.Errorf("%w: unknown oracle backend %q", bisecterrors.ErrInvalidArgument, cfg.Oracle.Access)
	}
}

// buildSelection assembles the component selection for a run from the
// merged config and the flags that shape it directly (host/target triples
// and alt-CI selection aren't persisted config, so they're read straight
// off flags).
func buildSelection(cfg *config.Config, flags *BisectFlags, hostTriple string) bisect.ComponentSelection {
	extra := append([]string{}, cfg.Bisect.Components...)
	if cfg.Bisect.WithSrc {
		extra = append(extra, "rust-src")
	}
	if cfg.Bisect.WithDev {
		extra = append(extra, "rustc-dev", "llvm-tools")
	}

	return bisect.ComponentSelection{
		Host:         hostTriple,
		Target:       cfg.Bisect.Target,
		Extra:        extra,
		IncludeCargo: cfg.Bisect.IncludeCargo,
		Alt:          flags.Alt,
	}
}

// runBisect is the root command's RunE: it loads configuration, resolves
// bounds and host/target triples, wires the oracle/installer/driver, and
// drives the orchestrator to completion, or installs a single artifact and
// exits when --install is given.
func runBisect(cmd *cobra.Command, flags *BisectFlags, args []string) error {
	ctx := cmd.Context()
	logger := GetLogger()

	if flags.Regress != "" && !bisect.IsValidPolicy(flags.Regress) {
		return fmt.Errorf("%w: --regress %q must be one of %v", bisecterrors.ErrInvalidArgument, flags.Regress, bisect.Policies())
	}
	if flags.Access != "" && !oracle.IsValidBackend(flags.Access) {
		return fmt.Errorf("%w: --access %q must be \"checkout\" or \"github\"", bisecterrors.ErrInvalidArgument, flags.Access)
	}

	cfg, err := resolvedConfig(cmd, flags)
	if err != nil {
		return err
	}

	hostTriple := flags.Host
	if hostTriple == "" {
		hostTriple, err = detectHostTriple()
		if err != nil {
			return err
		}
	}

	toolchainHome, err := config.ToolchainHomeDir()
	if err != nil {
		return err
	}
	if cfg.Toolchain.Home != "" {
		toolchainHome = cfg.Toolchain.Home
	}

	o, err := buildOracle(cfg)
	if err != nil {
		return err
	}
	inst := installer.New(filepath.Join(toolchainHome, constants.ToolchainsDir), logger)
	selection := buildSelection(cfg, flags, hostTriple)

	var confirm installer.Confirm
	if !cfg.Toolchain.ForceInstall {
		confirm = tui.ConfirmInstall
	}

	outputFormat, err := cmd.Flags().GetString("output")
	if err != nil {
		outputFormat = OutputText
	}
	out := tui.NewOutput(cmd.OutOrStdout(), outputFormat)

	if flags.Install != "" {
		return runInstallOnly(ctx, inst, flags.Install, selection, confirm, flags.PretendToBeStable, out)
	}

	driver := bisect.NewSubprocessDriver()
	releases := bisect.NewManifestReleaseResolver()

	workDir := flags.TestDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
	}

	opts := bisect.RunOptions{
		ByCommit:      flags.ByCommit || flags.Alt,
		Policy:        cfg.Bisect.Policy,
		Labels:        labelsFromFlags(flags),
		Selection:     selection,
		ForceInstall:  cfg.Toolchain.ForceInstall,
		Preserve:      cfg.Bisect.Preserve,
		Confirm:       confirm,
		Script:        cfg.Driver.Script,
		Args:          args,
		WorkDir:       workDir,
		Timeout:       cfg.Driver.Timeout,
		HostTriple:    hostTriple,
		PretendStable: flags.PretendToBeStable,
	}
	if cfg.Bisect.Prompt {
		opts.PromptClassify = promptClassify
	}

	if flags.Start != "" {
		start, err := parseBound(flags.Start)
		if err != nil {
			return err
		}
		opts.Start, opts.HasStart = start, true
	}
	if flags.End != "" {
		end, err := parseBound(flags.End)
		if err != nil {
			return err
		}
		opts.End, opts.HasEnd = end, true
	}

	resolver := bisect.NewResolver(o, releases, probeFuncFor(inst, driver, opts), nil)
	orchestrator := bisect.NewOrchestrator(resolver, inst, driver, o)

	report, err := orchestrator.Run(ctx, opts, progressReporter(logger))
	if err != nil {
		return fmt.Errorf("run bisection: %w", err)
	}

	return renderReport(out, report)
}

// probeFuncFor adapts the same acquire-run-classify-release sequence the
// orchestrator's classifyFunc uses for the resolver's backward search, which
// only ever probes nightly BuildPoints while searching for a defaulted
// --start.
func probeFuncFor(inst *installer.Installer, driver bisect.ProbeRunner, opts bisect.RunOptions) bisect.Prober {
	return func(ctx context.Context, point bisect.BuildPoint) (bisect.Outcome, error) {
		tasks, err := bisect.BuildDownloadTasks(point, opts.Selection)
		if err != nil {
			return bisect.Fatal, err
		}
		installTasks := make([]installer.DownloadTask, len(tasks))
		for i, t := range tasks {
			installTasks[i] = installer.DownloadTask{
				Component:    t.Component,
				URL:          t.URL,
				Compression:  installer.Compression(t.Compression),
				InnerRoot:    t.InnerRoot,
				KeepSubpaths: t.KeepSubpaths,
			}
		}

		handle, err := inst.Acquire(ctx, point.Key(), installTasks, opts.ForceInstall, opts.Confirm, opts.PretendStable)
		if err != nil {
			if installer.IsMissingArtifact(err) {
				return bisect.Skipped, nil
			}
			return bisect.Fatal, err
		}
		if opts.Preserve {
			handle.Preserve()
		}
		defer func() { _ = handle.Release(ctx) }()

		result, err := driver.Run(ctx, bisect.ProbeRequest{
			ToolchainName: handle.Name,
			BuildTarget:   opts.Selection.Host,
			TargetDir:     opts.WorkDir,
			Script:        opts.Script,
			Args:          opts.Args,
			WorkDir:       opts.WorkDir,
			Timeout:       opts.Timeout,
		})
		if err != nil {
			return bisect.Fatal, err
		}
		return bisect.ClassifyResult(result, opts.Policy)
	}
}

// promptClassify implements bisect.RunOptions.PromptClassify via the
// interactive Good/Bad/Skip/Retry/Abort menu, used when --prompt is set.
func promptClassify(point bisect.BuildPoint, _ bisect.ProbeResult) (bisect.Outcome, bool, error) {
	choice, err := tui.PromptClassification(point.String())
	if err != nil {
		return bisect.Fatal, false, err
	}

	switch choice {
	case tui.ClassificationChoiceGood:
		return bisect.Baseline, false, nil
	case tui.ClassificationChoiceBad:
		return bisect.Regressed, false, nil
	case tui.ClassificationChoiceSkip:
		return bisect.Skipped, false, nil
	case tui.ClassificationChoiceRetry:
		return bisect.Baseline, true, nil
	case tui.ClassificationChoiceAbort:
		return bisect.Fatal, false, bisecterrors.ErrOperationCanceled
	default:
		return bisect.Fatal, false, fmt.Errorf("%w: unknown classification choice %q", bisecterrors.ErrInvalidArgument, choice)
	}
}

// labelsFromFlags builds the classifier Labels from --term-old/--term-new,
// falling back to the unconfigured defaults.
func labelsFromFlags(flags *BisectFlags) bisect.Labels {
	labels := bisect.DefaultLabels()
	if flags.TermOld != "" {
		labels.Old = flags.TermOld
	}
	if flags.TermNew != "" {
		labels.New = flags.TermNew
	}
	return labels
}

// runInstallOnly installs the artifact named by bound and exits without
// bisecting, per --install's implicit --preserve.
func runInstallOnly(ctx context.Context, inst *installer.Installer, bound string, selection bisect.ComponentSelection, confirm installer.Confirm, pretendStable bool, out tui.Output) error {
	spec, err := parseBound(bound)
	if err != nil {
		return err
	}

	var point bisect.BuildPoint
	switch spec.Kind {
	case bisect.BoundDate:
		point = bisect.NewNightly(spec.Date)
	case bisect.BoundSHA:
		point = bisect.NewCommit(spec.SHA, time.Time{})
	default:
		return fmt.Errorf("%w: --install does not accept a release tag; pass a date or commit SHA", bisecterrors.ErrInvalidArgument)
	}

	tasks, err := bisect.BuildDownloadTasks(point, selection)
	if err != nil {
		return err
	}
	installTasks := make([]installer.DownloadTask, len(tasks))
	for i, t := range tasks {
		installTasks[i] = installer.DownloadTask{
			Component:    t.Component,
			URL:          t.URL,
			Compression:  installer.Compression(t.Compression),
			InnerRoot:    t.InnerRoot,
			KeepSubpaths: t.KeepSubpaths,
		}
	}

	handle, err := inst.Acquire(ctx, point.Key(), installTasks, false, confirm, pretendStable)
	if err != nil {
		return fmt.Errorf("install %s: %w", point.Key(), err)
	}
	handle.Preserve()

	out.Success(fmt.Sprintf("installed %s as toolchain %s", point.Key(), handle.Name))
	return nil
}

// progressReporter renders one log line per probe, via the run's logger
// rather than a terminal progress bar so output stays sane when stderr is
// redirected.
func progressReporter(logger zerolog.Logger) bisect.ProgressFunc {
	return func(entry bisect.TraceEntry) {
		logger.Info().
			Str("point", entry.Point.String()).
			Str("outcome", entry.Outcome.String()).
			Dur("elapsed", entry.Elapsed).
			Int("remaining_estimate", entry.RemainingEstimate).
			Msg("probed build point")
	}
}

// renderReport writes the final bisection report through out.
func renderReport(out tui.Output, report bisect.Report) error {
	if report.Regression.Unresolvable {
		out.Warning("bisection could not narrow to a single regressing build")
		return out.JSON(report)
	}

	out.Success(fmt.Sprintf("regression found: %s -> %s", report.Regression.LoPoint(), report.Regression.HiPoint()))
	if report.Rollup != nil {
		out.Info(fmt.Sprintf("regressing commit is a rollup merge (its sub-PRs were not searched): %s", report.Rollup.SHA))
	}
	out.Info(fmt.Sprintf("reproduce with: %s", report.ReproductionCmd))

	return out.JSON(report)
}

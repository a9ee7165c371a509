package bisect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
	"github.com/mrz1836/rustbisect/internal/installer"
	"github.com/mrz1836/rustbisect/internal/oracle"
)

// EngineVersion is stamped into every report's "engine version" field.
// Bumped alongside the classifier policy table or bisection algorithm.
const EngineVersion = "1"

// rollupSubjectPattern matches a bors auto-merge commit subject, per §4.7's
// rollup-phase trigger condition.
var rollupSubjectPattern = regexp.MustCompile(`^Auto merge of #\d+ - .+$`) //nolint:gochecknoglobals // compiled once for performance

// RunOptions configures one orchestrated bisection run.
type RunOptions struct {
	Start, End       BoundSpec
	HasStart, HasEnd bool

	ByCommit bool

	Policy       string
	Labels       Labels
	Selection    ComponentSelection
	ForceInstall bool
	Preserve     bool
	Confirm      installer.Confirm

	// PretendStable rewrites the installed sysroot's on-disk channel
	// marker so tooling that gates on channel (rather than invoking
	// `rustc --version` itself) treats the probed toolchain as stable,
	// per --pretend-to-be-stable.
	PretendStable bool

	Script     string
	Args       []string
	WorkDir    string
	Timeout    time.Duration
	HostTriple string

	// PromptClassify, when non-nil, replaces the Policy table for a probe
	// that ran to completion: it is handed the just-probed candidate and
	// its result, and returns either an outcome or a request to retry the
	// probe without advancing the search, per --prompt's Baseline/
	// Regressed/Skipped/Retry menu.
	PromptClassify func(point BuildPoint, result ProbeResult) (outcome Outcome, retry bool, err error)
}

// RollupCandidate names the bors rollup merge commit found at the regressing
// boundary, when the final per-commit candidate is an auto-merge. It is the
// merge commit itself; the sub-PRs inside the rollup are not searched.
type RollupCandidate struct {
	SHA     string
	Subject string
}

// Report is the final structured result of one orchestrated bisection run.
type Report struct {
	RunID           string
	EngineVersion   string
	HostTriple      string
	Regression      Result
	Rollup          *RollupCandidate
	ReproductionCmd string
}

// Orchestrator drives the resolver, installer, test driver, classifier, and
// bisector together across the nightly, per-commit, and rollup phases
// described in §4.7.
type Orchestrator struct {
	Resolver  *Resolver
	Installer *installer.Installer
	Driver    ProbeRunner
	Oracle    oracle.Oracle

	// HTTPClient fetches nightly channel manifests to recover the commit a
	// dated nightly was built from, when refining to commit granularity.
	HTTPClient *http.Client

	Now func() time.Time
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(resolver *Resolver, inst *installer.Installer, driver ProbeRunner, o oracle.Oracle) *Orchestrator {
	return &Orchestrator{Resolver: resolver, Installer: inst, Driver: driver, Oracle: o, HTTPClient: http.DefaultClient, Now: time.Now}
}

// Run executes the bisection described in §4.7: a daily nightly search,
// refined to a per-commit search when the two surviving nightlies lie within
// CIRetentionWindowDays of each other (see withinCommitWindow), and a final
// check that flags the regressing commit when it is a bors auto-merge. The
// sub-PRs of such a rollup are not bisected.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions, onProgress ProgressFunc) (Report, error) {
	runID := uuid.New().String()

	var startSpec, endSpec *BoundSpec
	if opts.HasStart {
		startSpec = &opts.Start
	}
	if opts.HasEnd {
		endSpec = &opts.End
	}

	end, err := o.Resolver.ResolveEnd(ctx, endSpec)
	if err != nil {
		return Report{}, fmt.Errorf("resolve end bound: %w", err)
	}

	classify := o.classifyFunc(opts)

	if opts.ByCommit && end.Kind == KindCommit {
		start, err := o.Resolver.ResolveStart(ctx, startSpec, end)
		if err != nil {
			return Report{}, fmt.Errorf("resolve start bound: %w", err)
		}
		// A defaulted --start resolves through the nightly backward search
		// regardless of the end bound's kind; convert it to the commit it
		// was built from so bisectCommits always walks real commit SHAs.
		start, err = o.ensureCommitPoint(ctx, start)
		if err != nil {
			return Report{}, fmt.Errorf("resolve start bound: %w", err)
		}
		result, err := o.bisectCommits(ctx, start, end, classify, onProgress)
		if err != nil {
			return Report{}, err
		}
		return o.finish(runID, opts, result)
	}

	start, err := o.Resolver.ResolveStart(ctx, startSpec, end)
	if err != nil {
		return Report{}, fmt.Errorf("resolve start bound: %w", err)
	}

	nightlyResult, err := Bisect(ctx, dailyCandidates(start, end), classify, onProgress)
	if err != nil {
		return Report{}, fmt.Errorf("nightly phase: %w", err)
	}
	if nightlyResult.Unresolvable {
		return o.finish(runID, opts, nightlyResult)
	}

	if o.Oracle == nil || !opts.ByCommit && !o.withinCommitWindow(nightlyResult) {
		return o.finish(runID, opts, nightlyResult)
	}

	commitResult, err := o.refineToCommits(ctx, nightlyResult, classify, onProgress)
	if err != nil {
		// A failed refinement still leaves the nightly-granularity result usable.
		return o.finish(runID, opts, nightlyResult)
	}

	return o.finish(runID, opts, commitResult)
}

// withinCommitWindow reports whether the nightly result's two bracketing
// points lie within CIRetentionWindowDays of each other. Only the gap
// between the two points is compared; their age relative to today is not
// checked.
func (o *Orchestrator) withinCommitWindow(result Result) bool {
	gap := result.HiPoint().Date.Sub(result.LoPoint().Date)
	return gap <= constants.CIRetentionWindowDays*24*time.Hour
}

// ensureCommitPoint converts a Nightly BuildPoint into the Commit it was
// built from, via the nightly's channel manifest and the oracle's author
// date lookup. Commit points pass through unchanged.
func (o *Orchestrator) ensureCommitPoint(ctx context.Context, point BuildPoint) (BuildPoint, error) {
	if point.Kind == KindCommit {
		return point, nil
	}
	if o.Oracle == nil {
		return BuildPoint{}, bisecterrors.ErrOracleUnavailable
	}

	sha, err := NightlyCommitSHA(ctx, o.HTTPClient, point.Date)
	if err != nil {
		return BuildPoint{}, err
	}

	commits, err := o.Oracle.RangeFirstParent(ctx, sha, sha)
	if err != nil || len(commits) == 0 {
		return BuildPoint{}, fmt.Errorf("resolve commit for nightly %s: author date lookup failed: %w", point.Key(), err)
	}
	return NewCommit(sha, commits[0].AuthorDate), nil
}

// refineToCommits walks the first-parent commit chain between the nightly
// result's two bracketing build points and re-bisects at commit
// granularity.
func (o *Orchestrator) refineToCommits(ctx context.Context, nightlyResult Result, classify Classify, onProgress ProgressFunc) (Result, error) {
	lo, hi := nightlyResult.LoPoint(), nightlyResult.HiPoint()

	loSHA, err := NightlyCommitSHA(ctx, o.HTTPClient, lo.Date)
	if err != nil {
		return Result{}, err
	}
	hiSHA, err := NightlyCommitSHA(ctx, o.HTTPClient, hi.Date)
	if err != nil {
		return Result{}, err
	}

	commits, err := o.Oracle.RangeFirstParent(ctx, loSHA, hiSHA)
	if err != nil {
		return Result{}, err
	}
	if len(commits) < 2 {
		return Result{}, bisecterrors.ErrNoRegressionInRange
	}

	candidates := make([]BuildPoint, len(commits))
	for i, c := range commits {
		candidates[i] = NewCommit(c.SHA, c.AuthorDate)
	}

	return Bisect(ctx, candidates, classify, onProgress)
}

// bisectCommits drives a commit-granularity search directly between two
// resolved commit build points, used when --by-commit forces commit mode.
func (o *Orchestrator) bisectCommits(ctx context.Context, start, end BuildPoint, classify Classify, onProgress ProgressFunc) (Result, error) {
	if o.Oracle == nil {
		return Result{}, bisecterrors.ErrOracleUnavailable
	}

	commits, err := o.Oracle.RangeFirstParent(ctx, start.SHA, end.SHA)
	if err != nil {
		return Result{}, err
	}

	candidates := make([]BuildPoint, 0, len(commits)+1)
	candidates = append(candidates, start)
	for _, c := range commits {
		candidates = append(candidates, NewCommit(c.SHA, c.AuthorDate))
	}

	return Bisect(ctx, candidates, classify, onProgress)
}

// finish assembles the final report, detecting a rollup merge at the
// regressing boundary per the rollup phase.
func (o *Orchestrator) finish(runID string, opts RunOptions, result Result) (Report, error) {
	report := Report{
		RunID:           runID,
		EngineVersion:   EngineVersion,
		HostTriple:      opts.HostTriple,
		Regression:      result,
		ReproductionCmd: reproductionCommand(opts, result),
	}

	if result.Unresolvable || o.Oracle == nil {
		return report, nil
	}

	hi := result.HiPoint()
	if hi.Kind != KindCommit {
		return report, nil
	}

	subject, err := o.Oracle.SubjectLineOf(context.Background(), hi.SHA)
	if err == nil && rollupSubjectPattern.MatchString(subject) {
		report.Rollup = &RollupCandidate{SHA: hi.SHA, Subject: subject}
	}

	return report, nil
}

// classifyFunc builds the Classify function an orchestrated run uses to
// probe a single candidate: acquire the toolchain, run the test command,
// classify the result, and release the toolchain unless --preserve was set.
func (o *Orchestrator) classifyFunc(opts RunOptions) Classify {
	return func(ctx context.Context, point BuildPoint) (Outcome, error) {
		tasks, err := BuildDownloadTasks(point, opts.Selection)
		if err != nil {
			return Fatal, err
		}

		installTasks := make([]installer.DownloadTask, len(tasks))
		for i, task := range tasks {
			installTasks[i] = installer.DownloadTask{
				Component:    task.Component,
				URL:          task.URL,
				Compression:  installer.Compression(task.Compression),
				InnerRoot:    task.InnerRoot,
				KeepSubpaths: task.KeepSubpaths,
			}
		}

		handle, err := o.Installer.Acquire(ctx, point.Key(), installTasks, opts.ForceInstall, opts.Confirm, opts.PretendStable)
		if err != nil {
			if installer.IsMissingArtifact(err) {
				return Skipped, nil
			}
			if errors.Is(err, bisecterrors.ErrToolchainNameConflict) {
				return Skipped, nil
			}
			return Fatal, err
		}
		if opts.Preserve {
			handle.Preserve()
		}
		defer func() { _ = handle.Release(ctx) }()

		req := ProbeRequest{
			ToolchainName: handle.Name,
			BuildTarget:   opts.Selection.Host,
			TargetDir:     opts.WorkDir,
			Script:        opts.Script,
			Args:          opts.Args,
			WorkDir:       opts.WorkDir,
			Timeout:       opts.Timeout,
		}

		result, err := o.Driver.Run(ctx, req)
		if err != nil {
			return Fatal, err
		}

		if opts.PromptClassify == nil {
			return ClassifyResult(result, opts.Policy)
		}

		for {
			outcome, retry, err := opts.PromptClassify(point, result)
			if err != nil {
				return Fatal, err
			}
			if !retry {
				return outcome, nil
			}
			result, err = o.Driver.Run(ctx, req)
			if err != nil {
				return Fatal, err
			}
		}
	}
}

// dailyCandidates builds the daily nightly sequence between start and end,
// inclusive.
func dailyCandidates(start, end BuildPoint) []BuildPoint {
	if !start.Date.Before(end.Date) {
		return []BuildPoint{start, end}
	}

	var points []BuildPoint
	for d := start.Date; !d.After(end.Date); d = d.AddDate(0, 0, 1) {
		points = append(points, NewNightly(d))
	}
	return points
}

// reproductionCommand renders the command a human would re-run to
// reproduce this bisection, included in the final report. It reports the
// bounds actually searched (the result's first and last candidates) rather
// than the raw flags, since a missing --start/--end is resolved before the
// search ever runs.
func reproductionCommand(opts RunOptions, result Result) string {
	cmd := "rustbisect"
	if len(result.Candidates) > 0 {
		cmd += fmt.Sprintf(" --start=%s --end=%s", result.Candidates[0].String(), result.Candidates[len(result.Candidates)-1].String())
	}
	if opts.ByCommit {
		cmd += " --by-commit"
	}
	if opts.Script != "" {
		cmd += fmt.Sprintf(" --script=%s", opts.Script)
	}
	for _, a := range opts.Args {
		cmd += " " + a
	}
	return cmd
}

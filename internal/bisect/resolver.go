package bisect

import (
	"context"
	"fmt"
	"time"

	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
	"github.com/mrz1836/rustbisect/internal/oracle"
)

// ReleaseTagResolver looks up the nightly date a tagged release branched
// from. Implementations typically read the rust-lang/rust release manifest
// or the oracle's tag metadata; grounded on original_source/src/main.rs's
// release-to-nightly mapping.
type ReleaseTagResolver interface {
	BranchPointOf(ctx context.Context, tag string) (time.Time, error)
}

// Prober classifies a single BuildPoint during backward search. The
// resolver only ever calls this with KindNightly points.
type Prober func(ctx context.Context, point BuildPoint) (Outcome, error)

// Resolver turns user-supplied BoundSpecs into BuildPoints, per §4.1.
type Resolver struct {
	Oracle   oracle.Oracle
	Releases ReleaseTagResolver
	Probe    Prober
	Now      func() time.Time
}

// NewResolver constructs a Resolver. now defaults to time.Now when nil.
func NewResolver(o oracle.Oracle, releases ReleaseTagResolver, probe Prober, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{Oracle: o, Releases: releases, Probe: probe, Now: now}
}

// ResolveEnd resolves the --end bound, defaulting to the latest available
// nightly when spec is nil.
func (r *Resolver) ResolveEnd(ctx context.Context, spec *BoundSpec) (BuildPoint, error) {
	if spec == nil {
		return NewNightly(r.Now().AddDate(0, 0, -1)), nil
	}
	return r.resolve(ctx, *spec)
}

// ResolveStart resolves the --start bound. When spec is nil, it performs an
// exponential-backoff backward search from end for the most recent nightly
// that still classifies as Baseline, grounded on
// original_source/src/main.rs's NightlyFinderIter.
func (r *Resolver) ResolveStart(ctx context.Context, spec *BoundSpec, end BuildPoint) (BuildPoint, error) {
	if spec != nil {
		return r.resolve(ctx, *spec)
	}
	return r.searchBackward(ctx, end)
}

// resolve converts one BoundSpec to a BuildPoint.
func (r *Resolver) resolve(ctx context.Context, spec BoundSpec) (BuildPoint, error) {
	switch spec.Kind {
	case BoundDate:
		return NewNightly(spec.Date), nil
	case BoundReleaseTag:
		return r.resolveReleaseTag(ctx, spec.ReleaseTag)
	case BoundSHA:
		return r.resolveSHA(ctx, spec.SHA)
	default:
		return BuildPoint{}, fmt.Errorf("resolve bound: unknown bound kind %d", spec.Kind)
	}
}

// resolveReleaseTag resolves a tagged release version to the nightly it
// branched from. Per decided Open Question (a), tag bounds always resolve
// to the branch-point nightly, never to the tagged commit itself.
func (r *Resolver) resolveReleaseTag(ctx context.Context, tag string) (BuildPoint, error) {
	if r.Releases == nil {
		return BuildPoint{}, fmt.Errorf("resolve release tag %q: %w", tag, bisecterrors.ErrOracleUnavailable)
	}
	branchPoint, err := r.Releases.BranchPointOf(ctx, tag)
	if err != nil {
		return BuildPoint{}, fmt.Errorf("resolve release tag %q: %w", tag, err)
	}
	return NewNightly(branchPoint), nil
}

// resolveSHA resolves a commit SHA to a Commit BuildPoint, confirming via
// the oracle that the SHA is reachable from upstream master.
func (r *Resolver) resolveSHA(ctx context.Context, sha string) (BuildPoint, error) {
	if r.Oracle == nil {
		return BuildPoint{}, fmt.Errorf("resolve sha %s: %w", sha, bisecterrors.ErrOracleUnavailable)
	}
	onMaster, err := r.Oracle.IsOnMaster(ctx, sha)
	if err != nil {
		return BuildPoint{}, fmt.Errorf("resolve sha %s: %w", sha, err)
	}
	if !onMaster {
		return BuildPoint{}, fmt.Errorf("resolve sha %s is not reachable from master: %w", sha, bisecterrors.ErrUnresolvableBound)
	}

	commits, err := r.Oracle.RangeFirstParent(ctx, sha, sha)
	if err != nil || len(commits) == 0 {
		return BuildPoint{}, fmt.Errorf("resolve sha %s: author date lookup failed: %w", sha, err)
	}
	return NewCommit(sha, commits[0].AuthorDate), nil
}

// backwardSearch jump schedule, grounded on NightlyFinderIter: 2-day jumps
// while less than a week has elapsed, 7-day jumps while less than seven
// weeks have elapsed, 14-day jumps beyond that.
const (
	earlyJump          = 2 * 24 * time.Hour
	earlyJumpThreshold = 7 * 24 * time.Hour
	midJump            = 7 * 24 * time.Hour
	midJumpThreshold   = 49 * 24 * time.Hour
	lateJump           = 14 * 24 * time.Hour
)

func jumpFor(elapsed time.Duration) time.Duration {
	switch {
	case elapsed < earlyJumpThreshold:
		return earlyJump
	case elapsed < midJumpThreshold:
		return midJump
	default:
		return lateJump
	}
}

// searchBackward walks backward from end, probing nightlies at
// successively larger intervals until it finds one that classifies as
// Baseline, floored at NightlyStdPackagingFloor.
func (r *Resolver) searchBackward(ctx context.Context, end BuildPoint) (BuildPoint, error) {
	if r.Probe == nil {
		return BuildPoint{}, fmt.Errorf("search backward for start bound: no probe function configured")
	}

	floor := constants.NightlyStdPackagingFloor
	cursor := end.Date
	elapsed := time.Duration(0)

	for {
		step := jumpFor(elapsed)
		cursor = cursor.Add(-step)
		elapsed += step

		hitFloor := false
		if !cursor.After(floor) {
			cursor = floor
			hitFloor = true
		}

		point := NewNightly(cursor)
		outcome, err := r.Probe(ctx, point)
		if err != nil {
			return BuildPoint{}, fmt.Errorf("search backward for start bound: %w", err)
		}

		if outcome == Baseline {
			return point, nil
		}
		if hitFloor {
			return BuildPoint{}, fmt.Errorf("search backward for start bound: %w", bisecterrors.ErrBoundaryNotFound)
		}
	}
}

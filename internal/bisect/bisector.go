package bisect

import (
	"context"
	"math"
	"time"

	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// Classify probes a single candidate and returns its outcome. The bisector
// never knows whether a candidate is a nightly or a commit; it drives
// whatever sequence the orchestrator built.
type Classify func(ctx context.Context, point BuildPoint) (Outcome, error)

// ProgressFunc is called after every probe with the current trace entry,
// letting the caller render a progress bar or log line.
type ProgressFunc func(entry TraceEntry)

// Result is what one bisector run over one candidate sequence produces.
type Result struct {
	// Lo and Hi are indices into the candidate sequence passed to Bisect.
	// Lo is the last known Baseline, Hi is the first known Regressed.
	Lo, Hi int

	Candidates []BuildPoint
	Trace      []TraceEntry

	// Unresolvable is true when every remaining candidate in the open
	// interval was Skipped and the search could not narrow further.
	Unresolvable bool
}

// LoPoint returns the BuildPoint at the result's Lo index.
func (r Result) LoPoint() BuildPoint { return r.Candidates[r.Lo] }

// HiPoint returns the BuildPoint at the result's Hi index.
func (r Result) HiPoint() BuildPoint { return r.Candidates[r.Hi] }

// outcomeCache memoizes per-index classifications so a candidate already
// probed (e.g. during Skipped linear probing) is never run twice.
type outcomeCache struct {
	values map[int]Outcome
}

func newOutcomeCache() *outcomeCache {
	return &outcomeCache{values: make(map[int]Outcome)}
}

// Bisect drives a binary search over candidates, grounded on
// least_satisfying.rs's algorithm: probe the ends, then repeatedly split the
// open interval, linear-probing outward from the midpoint when a candidate
// is Skipped.
func Bisect(ctx context.Context, candidates []BuildPoint, classify Classify, onProgress ProgressFunc) (Result, error) {
	if len(candidates) < 2 {
		return Result{}, bisecterrors.ErrNoRegressionInRange
	}

	cache := newOutcomeCache()
	trace := make([]TraceEntry, 0, len(candidates))

	probe := func(idx int) (Outcome, error) {
		if o, ok := cache.values[idx]; ok {
			return o, nil
		}
		start := time.Now()
		outcome, err := classify(ctx, candidates[idx])
		if err != nil {
			return Fatal, err
		}
		cache.values[idx] = outcome
		entry := TraceEntry{
			Point:   candidates[idx],
			Outcome: outcome,
			Elapsed: time.Since(start),
		}
		trace = append(trace, entry)
		if onProgress != nil {
			onProgress(entry)
		}
		return outcome, nil
	}

	lo, hi := 0, len(candidates)-1

	loOutcome, err := probe(lo)
	if err != nil {
		return Result{}, err
	}
	if loOutcome != Baseline {
		return Result{}, bisecterrors.ErrBoundsContradiction
	}

	hiOutcome, err := probe(hi)
	if err != nil {
		return Result{}, err
	}
	if hiOutcome != Regressed {
		return Result{}, bisecterrors.ErrBoundsContradiction
	}

	for hi-lo > 1 {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		mid, found, err := probeNarrowing(lo, hi, probe)
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Result{
				Lo: lo, Hi: hi,
				Candidates:   candidates,
				Trace:        trace,
				Unresolvable: true,
			}, nil
		}

		if cache.values[mid] == Baseline {
			lo = mid
		} else {
			hi = mid
		}

		remaining := remainingSteps(hi - lo)
		if len(trace) > 0 {
			trace[len(trace)-1].RemainingEstimate = remaining
		}
	}

	return Result{Lo: lo, Hi: hi, Candidates: candidates, Trace: trace}, nil
}

// probeNarrowing classifies the midpoint of (lo, hi), linear-probing outward
// through the open interval when a candidate is Skipped, until it finds a
// classifiable (non-Skipped) candidate or exhausts the interval.
func probeNarrowing(lo, hi int, probe func(int) (Outcome, error)) (int, bool, error) {
	for _, candidate := range probeOrder(lo, hi) {
		outcome, err := probe(candidate)
		if err != nil {
			return 0, false, err
		}
		if outcome == Baseline || outcome == Regressed {
			return candidate, true, nil
		}
	}

	return 0, false, nil
}

// probeOrder lists the open interval (lo, hi) starting at the midpoint and
// alternating outward: mid, mid-1, mid+1, mid-2, mid+2, ...
func probeOrder(lo, hi int) []int {
	mid := lo + (hi-lo)/2
	order := []int{mid}

	for offset := 1; mid-offset > lo || mid+offset < hi; offset++ {
		if mid-offset > lo {
			order = append(order, mid-offset)
		}
		if mid+offset < hi {
			order = append(order, mid+offset)
		}
	}

	return order
}

// remainingSteps estimates the number of probes left to finish narrowing an
// interval of the given width, ceil(log2(width)).
func remainingSteps(width int) int {
	if width <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(width))))
}

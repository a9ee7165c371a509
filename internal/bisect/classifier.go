package bisect

import (
	"bytes"
	"fmt"

	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// Policy names accepted by --regress, matching the classifier policy table.
const (
	PolicyError    = "error"
	PolicyMissing  = "success"
	PolicyICE      = "ice"
	PolicyNonICE   = "non-ice"
	PolicyNonError = "non-error"
)

// Policies lists every valid --regress value, in the order the help output
// shows them.
func Policies() []string {
	return []string{PolicyError, PolicyMissing, PolicyICE, PolicyNonICE, PolicyNonError}
}

// IsValidPolicy reports whether name is a known classifier policy.
func IsValidPolicy(name string) bool {
	for _, p := range Policies() {
		if p == name {
			return true
		}
	}
	return false
}

// ContainsICEMarker reports whether captured output names an internal
// compiler error, a stack overflow, or an unexpected panic, using a
// byte-wise, case-sensitive substring match against constants.ICEMarkers.
func ContainsICEMarker(output []byte) bool {
	for _, marker := range constants.ICEMarkers {
		if bytes.Contains(output, []byte(marker)) {
			return true
		}
	}
	return false
}

// ClassifyResult maps one probe's result to an Outcome under policy. A
// timed-out probe is always a non-success, and counts as an ICE for the
// non-ice and non-error policies per §4.4.
func ClassifyResult(result ProbeResult, policy string) (Outcome, error) {
	success := !result.TimedOut && result.ExitCode == 0
	marker := ContainsICEMarker([]byte(result.Stdout + result.Stderr))
	ice := result.TimedOut || marker

	switch policy {
	case PolicyError:
		if success {
			return Baseline, nil
		}
		return Regressed, nil
	case PolicyMissing:
		if success {
			return Regressed, nil
		}
		return Baseline, nil
	case PolicyICE:
		if marker {
			return Regressed, nil
		}
		return Baseline, nil
	case PolicyNonICE:
		if ice {
			return Baseline, nil
		}
		return Regressed, nil
	case PolicyNonError:
		if success || ice {
			return Regressed, nil
		}
		return Baseline, nil
	default:
		return Fatal, fmt.Errorf("%w: %q", bisecterrors.ErrUnknownClassification, policy)
	}
}

// Labels holds the configurable human-readable names for Baseline/Regressed
// used in place of the words "baseline" and "regressed" throughout a run's
// output, set via --term-old/--term-new.
type Labels struct {
	Old string
	New string
}

// DefaultLabels returns the unconfigured label set.
func DefaultLabels() Labels {
	return Labels{Old: "baseline", New: "regressed"}
}

// For renders the label for an outcome, falling back to the outcome's
// canonical name for Skipped and Fatal, which are never renamed.
func (l Labels) For(o Outcome) string {
	switch o {
	case Baseline:
		return valueOr(l.Old, "baseline")
	case Regressed:
		return valueOr(l.New, "regressed")
	default:
		return o.String()
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

package bisect

import (
	"fmt"

	"github.com/mrz1836/rustbisect/internal/constants"
)

// Compression names the archive format a download task uses.
type Compression string

// Archive compression formats the catalog knows how to describe.
const (
	CompressionXZ Compression = "xz"
	CompressionGZ Compression = "gz"
)

// DownloadTask describes one archive to fetch and unpack for a probe.
type DownloadTask struct {
	// Component is the artifact component name, e.g. "rustc", "cargo",
	// "rust-std".
	Component string

	// URL is the full URL to fetch.
	URL string

	// Compression names the archive's compression format.
	Compression Compression

	// InnerRoot is the archive's expected top-level directory, e.g.
	// "rustc-nightly-x86_64-unknown-linux-gnu".
	InnerRoot string

	// KeepSubpaths lists the subpaths under InnerRoot to extract; empty
	// means keep the whole inner root.
	KeepSubpaths []string
}

// ComponentSelection describes which components a probe's toolchain needs.
type ComponentSelection struct {
	// Host is the host/build triple, e.g. "x86_64-unknown-linux-gnu".
	Host string

	// Target is an optional cross-compilation triple whose standard
	// library is installed alongside the host's. Empty means host-only.
	Target string

	// Extra lists additional components beyond rustc/std/cargo, e.g.
	// "rust-src", "rustc-dev", "llvm-tools", "clippy", "miri", "rust-docs".
	Extra []string

	// IncludeCargo installs cargo alongside rustc.
	IncludeCargo bool

	// Alt selects the sanitizer-enabled "alt" CI variant. Only meaningful
	// for KindCommit points.
	Alt bool
}

// components returns the full component name list for a selection,
// always including rustc and the host standard library.
func (c ComponentSelection) components() []string {
	names := []string{"rustc", "rust-std-" + c.Host}
	if c.IncludeCargo {
		names = append(names, "cargo")
	}
	if c.Target != "" && c.Target != c.Host {
		names = append(names, "rust-std-"+c.Target)
	}
	names = append(names, c.Extra...)
	return names
}

// BuildDownloadTasks computes the list of archives to fetch for point under
// selection, per §4.2: nightly-dist for KindNightly, per-commit CI (or its
// alt variant) for KindCommit.
func BuildDownloadTasks(point BuildPoint, selection ComponentSelection) ([]DownloadTask, error) {
	switch point.Kind {
	case KindNightly:
		return nightlyTasks(point, selection), nil
	case KindCommit:
		return commitTasks(point, selection), nil
	default:
		return nil, fmt.Errorf("build download tasks: unknown build point kind %d", point.Kind)
	}
}

func nightlyTasks(point BuildPoint, selection ComponentSelection) []DownloadTask {
	dateDir := point.Date.Format("2006-01-02")
	tasks := make([]DownloadTask, 0, len(selection.components()))

	for _, component := range selection.components() {
		innerRoot := fmt.Sprintf("%s-nightly-%s", component, selection.Host)
		tasks = append(tasks, DownloadTask{
			Component:   component,
			URL:         fmt.Sprintf("%s/%s/%s.tar.xz", constants.NightlyDistRoot, dateDir, innerRoot),
			Compression: CompressionXZ,
			InnerRoot:   innerRoot,
		})
	}

	return tasks
}

func commitTasks(point BuildPoint, selection ComponentSelection) []DownloadTask {
	root := constants.CIArtifactRoot
	if selection.Alt {
		root = constants.CIArtifactAltRoot
	}

	tasks := make([]DownloadTask, 0, len(selection.components()))
	for _, component := range selection.components() {
		innerRoot := fmt.Sprintf("%s-nightly-%s", component, selection.Host)
		url := fmt.Sprintf("%s/%s/%s.tar.xz", root, point.SHA, innerRoot)
		if selection.Alt {
			url = fmt.Sprintf("%s/%s/%s/%s-alt.tar.xz", root, point.SHA, selection.Host, innerRoot)
		}
		tasks = append(tasks, DownloadTask{
			Component:   component,
			URL:         url,
			Compression: CompressionXZ,
			InnerRoot:   innerRoot,
		})
	}

	return tasks
}

// RollupDownloadTask computes the single perf-CI download task for a rollup
// sub-PR candidate. Only PerfCISupportedTriple is published there.
func RollupDownloadTask(sha, host string) (DownloadTask, error) {
	if host != constants.PerfCISupportedTriple {
		return DownloadTask{}, fmt.Errorf("rollup artifacts are only published for %s, not %s", constants.PerfCISupportedTriple, host)
	}

	innerRoot := fmt.Sprintf("rustc-nightly-%s", host)
	return DownloadTask{
		Component:   "rustc",
		URL:         fmt.Sprintf("%s/%s/%s.tar.xz", constants.PerfCIArtifactRoot, sha, innerRoot),
		Compression: CompressionXZ,
		InnerRoot:   innerRoot,
	}, nil
}

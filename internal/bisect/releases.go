package bisect

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// channelManifestRoot serves the per-release channel manifests that embed
// each release's build commit date.
const channelManifestRoot = "https://static.rust-lang.org/dist/channel-rust"

// commitDateRe extracts both the short commit SHA and the commit date from
// a manifest's version string, e.g. "1.29.0-nightly (7621df6f2 2018-07-29)".
var commitDateRe = regexp.MustCompile(`\(([0-9a-f]+) (\d{4}-\d{2}-\d{2})\)`) //nolint:gochecknoglobals // compiled once for performance

// NightlyCommitSHA looks up the short commit SHA a dated nightly was built
// from, by reading that day's channel manifest — the same manifest
// BuildDownloadTasks' nightly URLs are served alongside. Used to convert a
// nightly BuildPoint into a commit reference the oracle can walk history
// from when refining a nightly-granularity result to commit granularity.
//
// The manifest only records a short (abbreviated) SHA; callers that need
// the full SHA must resolve it further through the oracle.
func NightlyCommitSHA(ctx context.Context, client *http.Client, date time.Time) (string, error) {
	url := fmt.Sprintf("%s/%s/channel-rust-nightly.toml", constants.NightlyDistRoot, date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v", bisecterrors.ErrUnresolvableBound, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: nightly manifest for %s returned %d", bisecterrors.ErrUnresolvableBound, date.Format("2006-01-02"), resp.StatusCode)
	}

	var manifest channelManifest
	if err := toml.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return "", fmt.Errorf("%w: decode nightly manifest for %s: %v", bisecterrors.ErrUnresolvableBound, date.Format("2006-01-02"), err)
	}

	match := commitDateRe.FindStringSubmatch(manifest.Pkg.Rustc.Version)
	if len(match) != 3 {
		return "", fmt.Errorf("%w: no commit sha in version string %q", bisecterrors.ErrUnresolvableBound, manifest.Pkg.Rustc.Version)
	}
	return match[1], nil
}

// versionDateRe extracts the embedded commit date from a manifest's
// version string, e.g. "1.28.0 (9634041f0 2018-07-06)".
var versionDateRe = regexp.MustCompile(`\((?:[0-9a-f]+) (\d{4}-\d{2}-\d{2})\)`) //nolint:gochecknoglobals // compiled once for performance

// ManifestReleaseResolver resolves a release tag (e.g. "1.28.0") to the
// nightly date it built from, by reading the release's published channel
// manifest and extracting the embedded commit date from rustc's version
// string — the same value `rustc --version` reports for that release.
type ManifestReleaseResolver struct {
	HTTPClient *http.Client
}

// NewManifestReleaseResolver constructs a ManifestReleaseResolver using the
// default HTTP client.
func NewManifestReleaseResolver() *ManifestReleaseResolver {
	return &ManifestReleaseResolver{HTTPClient: http.DefaultClient}
}

type channelManifest struct {
	Pkg struct {
		Rustc struct {
			Version string `toml:"version"`
		} `toml:"rustc"`
	} `toml:"pkg"`
}

// BranchPointOf implements ReleaseTagResolver.
func (r *ManifestReleaseResolver) BranchPointOf(ctx context.Context, tag string) (time.Time, error) {
	url := fmt.Sprintf("%s-%s.toml", channelManifestRoot, tag)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fetch %s: %v", bisecterrors.ErrUnresolvableBound, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("%w: release %q manifest returned %d", bisecterrors.ErrUnresolvableBound, tag, resp.StatusCode)
	}

	var manifest channelManifest
	if err := toml.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return time.Time{}, fmt.Errorf("%w: decode manifest for %q: %v", bisecterrors.ErrUnresolvableBound, tag, err)
	}

	match := versionDateRe.FindStringSubmatch(manifest.Pkg.Rustc.Version)
	if len(match) != 2 {
		return time.Time{}, fmt.Errorf("%w: no commit date in version string %q", bisecterrors.ErrUnresolvableBound, manifest.Pkg.Rustc.Version)
	}

	date, err := time.Parse("2006-01-02", match[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse commit date %q: %v", bisecterrors.ErrUnresolvableBound, match[1], err)
	}
	return date, nil
}

// Package installer turns a resolved BuildPoint's download tasks into a
// registered rustup toolchain, and tears it back down afterward.
//
// The central type is Handle, a scoped install handle (§4.3): Acquire
// downloads and extracts every DownloadTask, assembles a sysroot, and
// registers it with rustup under a reserved-prefixed name; Release
// deregisters and deletes it. Release runs on every exit path, including
// panics and interrupts, via the caller's defer.
package installer

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// Installer extracts archives, assembles sysroots, and registers/deregisters
// rustup toolchains on behalf of the bisection engine.
type Installer struct {
	// ToolchainsDir is the directory under the toolchain home where
	// extracted sysroots live, one subdirectory per toolchain name.
	ToolchainsDir string

	// HTTPClient fetches artifact archives and manifests.
	HTTPClient *http.Client

	// Rustup registers and deregisters toolchains with the host's rustup
	// installation.
	Rustup *Rustup

	Logger zerolog.Logger
}

// New constructs an Installer rooted at toolchainsDir.
func New(toolchainsDir string, logger zerolog.Logger) *Installer {
	return &Installer{
		ToolchainsDir: toolchainsDir,
		HTTPClient:    http.DefaultClient,
		Rustup:        NewRustup(),
		Logger:        logger,
	}
}

// ToolchainName computes the reserved-prefixed rustup toolchain name for a
// build point's catalog key, e.g. "rustbisect-nightly-2018-07-30" or
// "rustbisect-ci-deadbeef".
func ToolchainName(catalogKey string) string {
	return fmt.Sprintf("%s-%s", constants.ToolchainNamePrefix, catalogKey)
}

// classifyHTTPStatus maps an artifact HTTP response's status code onto the
// §4.3 error taxonomy: 404 is Missing (the caller should classify the probe
// as Skipped), any other non-2xx is treated as a network-class failure
// subject to bounded retry.
func classifyHTTPStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return bisecterrors.ErrArtifactNotFound
	case status >= 200 && status < 300:
		return nil
	default:
		return fmt.Errorf("%w: unexpected status %d", bisecterrors.ErrDownloadFailed, status)
	}
}

// IsMissingArtifact reports whether err indicates the requested artifact
// does not exist for this build point (§4.3's Missing error class), which
// the orchestrator classifies as Skipped rather than Fatal.
func IsMissingArtifact(err error) bool {
	return errors.Is(err, bisecterrors.ErrArtifactNotFound) || errors.Is(err, bisecterrors.ErrArtifactExpired)
}

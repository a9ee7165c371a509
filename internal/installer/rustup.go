package installer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// Rustup shells out to the host's rustup installation to register and
// deregister engine-managed toolchains.
type Rustup struct {
	// Binary is the rustup executable name or path.
	Binary string
}

// NewRustup constructs a Rustup wrapper using the rustup found on PATH.
func NewRustup() *Rustup {
	return &Rustup{Binary: constants.ToolRustup}
}

// Link registers sysrootDir as a toolchain named name via
// `rustup toolchain link`.
func (r *Rustup) Link(ctx context.Context, name, sysrootDir string) error {
	cmd := exec.CommandContext(ctx, r.Binary, "toolchain", "link", name, sysrootDir) //nolint:gosec // name and sysrootDir are engine-controlled, not user command input
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: rustup toolchain link %s: %s", bisecterrors.ErrInstallFailed, name, strings.TrimSpace(string(out)))
	}
	return nil
}

// Uninstall deregisters a toolchain named name via
// `rustup toolchain uninstall`. It refuses to act on any name that does not
// carry the engine's reserved prefix, per the deletion-safety guard in §4.3.
func (r *Rustup) Uninstall(ctx context.Context, name string) error {
	if !IsManagedToolchain(name) {
		return fmt.Errorf("%w: %s", bisecterrors.ErrToolchainNotManaged, name)
	}

	cmd := exec.CommandContext(ctx, r.Binary, "toolchain", "uninstall", name) //nolint:gosec // name is validated above
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rustup toolchain uninstall %s: %s: %w", name, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// IsRegistered reports whether a toolchain named name is already known to
// rustup, via `rustup toolchain list`.
func (r *Rustup) IsRegistered(ctx context.Context, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, r.Binary, "toolchain", "list")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("rustup toolchain list: %s: %w", strings.TrimSpace(string(out)), err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), name) {
			return true, nil
		}
	}
	return false, nil
}

// IsManagedToolchain reports whether name carries the engine's reserved
// prefix, the deletion-safety guard that keeps the installer from ever
// deregistering a toolchain it did not create.
func IsManagedToolchain(name string) bool {
	return strings.HasPrefix(name, constants.ToolchainNamePrefix+"-")
}

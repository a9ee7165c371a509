package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// Handle is a scoped install handle (§4.3): Acquire downloads every
// DownloadTask, extracts it into a fresh sysroot directory, and registers
// it with rustup. Release deregisters and deletes it. Callers must defer
// Release immediately after a successful Acquire so every exit path —
// including a panic or an interrupt signal unwinding through the defer
// chain — tears the toolchain back down.
type Handle struct {
	// Name is the reserved-prefixed rustup toolchain name.
	Name string

	// SysrootDir is the extracted toolchain's root directory.
	SysrootDir string

	installer *Installer
	preserve  bool
	linked    bool
}

// Confirm asks the operator whether to proceed with an install. Wired to
// tui.ConfirmInstall by the caller; nil skips confirmation (--force-install).
type Confirm func(toolchainName string) (bool, error)

// Acquire downloads and extracts every task, assembles a single sysroot
// directory, and registers it with rustup under a reserved-prefixed name
// derived from catalogKey. If a toolchain with that name is already
// registered, Acquire returns ErrToolchainNameConflict and installs nothing
// unless forceInstall is set — per decided Open Question (b), a
// pre-existing same-named toolchain is always treated as a conflict to
// skip, never silently reused. pretendStable rewrites the sysroot's
// on-disk channel markers after extraction, for --pretend-to-be-stable.
func (inst *Installer) Acquire(ctx context.Context, catalogKey string, tasks []DownloadTask, forceInstall bool, confirm Confirm, pretendStable bool) (*Handle, error) {
	name := ToolchainName(catalogKey)

	registered, err := inst.Rustup.IsRegistered(ctx, name)
	if err != nil {
		return nil, err
	}
	if registered && !forceInstall {
		return nil, fmt.Errorf("%w: %s", bisecterrors.ErrToolchainNameConflict, name)
	}

	if !forceInstall && confirm != nil {
		ok, err := confirm(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, bisecterrors.ErrOperationCanceled
		}
	}

	sysroot := filepath.Join(inst.ToolchainsDir, name)
	if err := os.RemoveAll(sysroot); err != nil {
		return nil, fmt.Errorf("clear stale sysroot %s: %w", sysroot, err)
	}
	if err := os.MkdirAll(sysroot, 0o755); err != nil { //nolint:gosec // toolchain sysroots are not secrets
		return nil, fmt.Errorf("create sysroot %s: %w", sysroot, err)
	}

	downloadDir := filepath.Join(inst.ToolchainsDir, ".downloads", name)
	defer func() { _ = os.RemoveAll(downloadDir) }()

	for _, task := range tasks {
		archivePath, err := inst.download(ctx, task, downloadDir)
		if err != nil {
			_ = os.RemoveAll(sysroot)
			return nil, err
		}
		if err := extractArchive(archivePath, task, sysroot); err != nil {
			_ = os.RemoveAll(sysroot)
			return nil, err
		}
	}

	if pretendStable {
		if err := applyPretendStable(sysroot); err != nil {
			_ = os.RemoveAll(sysroot)
			return nil, err
		}
	}

	if registered && forceInstall {
		if err := inst.Rustup.Uninstall(ctx, name); err != nil {
			_ = os.RemoveAll(sysroot)
			return nil, err
		}
	}

	if err := inst.Rustup.Link(ctx, name, sysroot); err != nil {
		_ = os.RemoveAll(sysroot)
		return nil, err
	}

	return &Handle{Name: name, SysrootDir: sysroot, installer: inst, linked: true}, nil
}

// Preserve marks the handle to skip deregistration and deletion on
// Release, honoring --preserve.
func (h *Handle) Preserve() { h.preserve = true }

// Release deregisters and deletes the toolchain, unless Preserve was
// called. Safe to call multiple times; safe to call after a partially
// failed Acquire left nothing registered.
func (h *Handle) Release(ctx context.Context) error {
	if h == nil || h.preserve {
		return nil
	}

	var errs []error
	if h.linked {
		if err := h.installer.Rustup.Uninstall(ctx, h.Name); err != nil {
			errs = append(errs, err)
		}
		h.linked = false
	}
	if h.SysrootDir != "" {
		if err := os.RemoveAll(h.SysrootDir); err != nil {
			errs = append(errs, fmt.Errorf("remove sysroot %s: %w", h.SysrootDir, err))
		}
		h.SysrootDir = ""
	}

	if len(errs) > 0 {
		return fmt.Errorf("release toolchain %s: %w", h.Name, errs[0])
	}
	return nil
}

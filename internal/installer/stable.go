package installer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// channelMarkerPaths lists the on-disk files, relative to a sysroot, that
// downstream tooling (cargo, build.rs scripts checking RUSTC_BOOTSTRAP vs.
// channel, rls) consults to learn which channel produced the toolchain,
// rather than invoking `rustc --version` itself.
var channelMarkerPaths = []string{ //nolint:gochecknoglobals // fixed list of known sysroot files
	"version",
	filepath.Join("lib", "rustlib", "version"),
}

// applyPretendStable rewrites every channel marker file under sysroot,
// replacing a "-nightly" or " nightly" channel tag with a stable-looking
// one, for --pretend-to-be-stable. Rewriting the compiled-in version string
// rustc itself reports would mean patching the binary; this instead covers
// the on-disk markers that channel-gating build scripts and cargo actually
// read, which is the surface a toolchain swap can safely affect.
func applyPretendStable(sysroot string) error {
	for _, rel := range channelMarkerPaths {
		path := filepath.Join(sysroot, rel)
		original, err := os.ReadFile(path) //nolint:gosec // path is derived from a fixed relative list under our own sysroot
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read channel marker %s: %w", path, err)
		}

		rewritten := bytes.ReplaceAll(original, []byte("-nightly"), []byte("-stable"))
		rewritten = bytes.ReplaceAll(rewritten, []byte(" nightly"), []byte(" stable"))
		if bytes.Equal(rewritten, original) {
			continue
		}

		info, statErr := os.Stat(path)
		mode := os.FileMode(0o644)
		if statErr == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(path, rewritten, mode); err != nil {
			return fmt.Errorf("rewrite channel marker %s: %w", path, err)
		}
	}
	return nil
}

package installer

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// maxExtractedBytes bounds total decompressed output per archive, guarding
// against a corrupt or hostile archive expanding without limit.
const maxExtractedBytes = 8 << 30 // 8 GiB

// extractArchive decompresses and untars archivePath into destDir, keeping
// only the entries under task.InnerRoot (and, if set, further restricted to
// task.KeepSubpaths beneath it). Entries are re-rooted so destDir directly
// contains the kept subtree, matching how the rest of the installer expects
// a toolchain's sysroot to be laid out.
func extractArchive(archivePath string, task DownloadTask, destDir string) error {
	f, err := os.Open(archivePath) //nolint:gosec // archivePath is a path we downloaded to ourselves
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer func() { _ = f.Close() }()

	var reader io.Reader
	switch task.Compression {
	case CompressionXZ:
		xzReader, xzErr := xz.NewReader(f)
		if xzErr != nil {
			return fmt.Errorf("%w: %s: %v", bisecterrors.ErrCorruptArchive, archivePath, xzErr)
		}
		reader = xzReader
	case CompressionGZ:
		gzReader, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			return fmt.Errorf("%w: %s: %v", bisecterrors.ErrCorruptArchive, archivePath, gzErr)
		}
		defer func() { _ = gzReader.Close() }()
		reader = gzReader
	default:
		return fmt.Errorf("extract archive: unknown compression %q", task.Compression)
	}

	return untar(reader, task, destDir)
}

func untar(reader io.Reader, task DownloadTask, destDir string) error {
	tr := tar.NewReader(reader)
	var written int64

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read tar entry: %v", bisecterrors.ErrCorruptArchive, err)
		}

		rel, ok := relocate(header.Name, task)
		if !ok {
			continue
		}

		target := filepath.Join(destDir, rel) //nolint:gosec // rel is validated by relocate to stay within destDir
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
			return fmt.Errorf("%w: tar entry %q escapes destination", bisecterrors.ErrCorruptArchive, header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil { //nolint:gosec // toolchain sysroots are not secrets
				return fmt.Errorf("create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:gosec // see above
				return fmt.Errorf("create directory %s: %w", filepath.Dir(target), err)
			}
			n, err := extractFile(tr, target, header.Size)
			if err != nil {
				return err
			}
			written += n
			if written > maxExtractedBytes {
				return fmt.Errorf("%w: archive exceeds %d bytes extracted", bisecterrors.ErrCorruptArchive, maxExtractedBytes)
			}
		case tar.TypeSymlink:
			// Toolchain archives don't rely on symlinks surviving extraction;
			// the installer treats a tree without them as complete.
			continue
		default:
			continue
		}
	}
}

// relocate strips an archive entry's InnerRoot prefix and, if KeepSubpaths
// is set, keeps only entries under one of them. ok is false for entries
// that should be skipped.
func relocate(name string, task DownloadTask) (rel string, ok bool) {
	name = filepath.ToSlash(name)
	prefix := filepath.ToSlash(task.InnerRoot) + "/"
	if !strings.HasPrefix(name+"/", prefix) && name != task.InnerRoot {
		return "", false
	}

	rel = strings.TrimPrefix(name, task.InnerRoot)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", false
	}

	if len(task.KeepSubpaths) == 0 {
		return rel, true
	}
	for _, keep := range task.KeepSubpaths {
		keep = strings.TrimSuffix(filepath.ToSlash(keep), "/")
		if rel == keep || strings.HasPrefix(rel, keep+"/") {
			return rel, true
		}
	}
	return "", false
}

func extractFile(r io.Reader, target string, size int64) (int64, error) {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:gosec // toolchain files are not secrets
	if err != nil {
		return 0, fmt.Errorf("create file %s: %w", target, err)
	}
	defer func() { _ = out.Close() }()

	n, err := io.Copy(out, io.LimitReader(r, size))
	if err != nil {
		return n, fmt.Errorf("write file %s: %w", target, err)
	}
	return n, nil
}

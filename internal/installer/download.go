package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
	"github.com/mrz1836/rustbisect/internal/retry"
)

// download fetches task's archive into destDir, retrying transient network
// failures with DefaultDownloadConfig. A 404 response short-circuits
// without retrying, since it means the artifact was never published or has
// aged out of the retention window, not a transient failure.
func (inst *Installer) download(ctx context.Context, task DownloadTask, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil { //nolint:gosec // toolchain archives are not secrets
		return "", fmt.Errorf("create download directory %s: %w", destDir, err)
	}
	archivePath := filepath.Join(destDir, filepath.Base(task.URL))

	op := &retry.SimpleOperation[string]{
		AttemptFunc: func(attemptCtx context.Context, _ int) (string, bool, error) {
			if err := inst.fetchOnce(attemptCtx, task.URL, archivePath); err != nil {
				return "", false, err
			}
			return archivePath, true, nil
		},
		ShouldRetryFunc: func(err error) bool {
			return !IsMissingArtifact(err)
		},
		OnRetryWaitFunc: func(attempt int, delay time.Duration) {
			inst.Logger.Warn().
				Str("url", task.URL).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("retrying artifact download")
		},
	}

	path, _, err := retry.Execute(ctx, retry.DefaultDownloadConfig(), op, inst.Logger)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (inst *Installer) fetchOnce(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := inst.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", bisecterrors.ErrDownloadFailed, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyHTTPStatus(resp.StatusCode); err != nil {
		return err
	}

	out, err := os.Create(destPath) //nolint:gosec // destPath is built from our own download directory
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("%w: write %s: %v", bisecterrors.ErrDownloadFailed, destPath, err)
	}
	return nil
}

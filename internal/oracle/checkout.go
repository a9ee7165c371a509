package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
	"github.com/mrz1836/rustbisect/internal/flock"
	"github.com/mrz1836/rustbisect/internal/git"
)

// upstreamRemote is the rust-lang/rust repository cloned by the checkout
// backend.
const upstreamRemote = "https://github.com/rust-lang/rust.git"

// masterRef is the branch IsOnMaster checks ancestry against.
const masterRef = "origin/master"

// CheckoutOracle answers oracle queries against a local first-parent clone
// of rust-lang/rust, serializing access with a single flock per §5 so
// concurrent bisection runs never corrupt one clone.
type CheckoutOracle struct {
	// RepoPath is the local clone's working directory. NewCheckoutOracle
	// fills an empty path from EnvSourceRepoPath; the CLI falls back to
	// SourceRepoDir under the toolchain home when neither the config nor
	// that variable names a path.
	RepoPath string
}

// NewCheckoutOracle constructs a CheckoutOracle rooted at repoPath,
// cloning or fetching it on first use.
func NewCheckoutOracle(repoPath string) *CheckoutOracle {
	if repoPath == "" {
		if override := os.Getenv(constants.EnvSourceRepoPath); override != "" {
			repoPath = override
		}
	}
	return &CheckoutOracle{RepoPath: repoPath}
}

// withLock acquires the clone's lock file for the duration of fn, per §5's
// single-flock-on-the-clone rule.
func (o *CheckoutOracle) withLock(fn func() error) error {
	if err := os.MkdirAll(o.RepoPath, 0o755); err != nil { //nolint:gosec // clone directory is not a secret
		return fmt.Errorf("create source repo directory %s: %w", o.RepoPath, err)
	}

	lockPath := filepath.Join(o.RepoPath, ".rustbisect.lock")
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec // lock file is not a secret
	if err != nil {
		return fmt.Errorf("open lock file %s: %w", lockPath, err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flock.Exclusive(lockFile.Fd()); err != nil {
		return fmt.Errorf("%w: %s", bisecterrors.ErrLockTimeout, lockPath)
	}
	defer func() { _ = flock.Unlock(lockFile.Fd()) }()

	return fn()
}

// ensureClone clones the repository if RepoPath is not yet a git working
// tree, then fetches master so ancestry queries see the latest history.
func (o *CheckoutOracle) ensureClone(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(o.RepoPath, ".git")); err == nil {
		_, fetchErr := git.RunCommand(ctx, o.RepoPath, "fetch", "--quiet", "origin", "master")
		return fetchErr
	}

	if _, err := git.RunCommand(ctx, filepath.Dir(o.RepoPath), "clone", "--quiet", "--filter=blob:none", upstreamRemote, o.RepoPath); err != nil {
		return fmt.Errorf("%w: %v", bisecterrors.ErrRepoCloneFailed, err)
	}
	return nil
}

// RangeFirstParent implements Oracle.
func (o *CheckoutOracle) RangeFirstParent(ctx context.Context, firstSHA, lastSHA string) ([]Commit, error) {
	var commits []Commit

	err := o.withLock(func() error {
		if err := o.ensureClone(ctx); err != nil {
			return err
		}

		const fieldSep = "\x1f"
		format := strings.Join([]string{"%H", "%aI", "%s", "%b"}, fieldSep) + "\x1e"

		rangeArg := lastSHA
		if firstSHA != "" && firstSHA != lastSHA {
			rangeArg = fmt.Sprintf("%s..%s", firstSHA, lastSHA)
		}

		args := []string{"log", "--first-parent", "--reverse", "--format=" + format}
		if firstSHA == lastSHA {
			// A one-commit query: list lastSHA itself, not its whole history.
			args = append(args, "--max-count=1")
		}
		out, err := git.RunCommand(ctx, o.RepoPath, append(args, rangeArg)...)
		if err != nil {
			return err
		}

		for _, record := range strings.Split(out, "\x1e") {
			record = strings.Trim(record, "\n")
			if record == "" {
				continue
			}
			fields := strings.SplitN(record, fieldSep, 4)
			if len(fields) < 3 {
				continue
			}

			authorDate, parseErr := time.Parse(time.RFC3339, fields[1])
			if parseErr != nil {
				return fmt.Errorf("parse author date %q: %w", fields[1], parseErr)
			}

			c := Commit{SHA: fields[0], AuthorDate: authorDate, Subject: fields[2]}
			if len(fields) == 4 {
				c.Body = strings.TrimSpace(fields[3])
			}
			commits = append(commits, c)
		}

		return nil
	})

	return commits, err
}

// SubjectLineOf implements Oracle.
func (o *CheckoutOracle) SubjectLineOf(ctx context.Context, sha string) (string, error) {
	var subject string
	err := o.withLock(func() error {
		if err := o.ensureClone(ctx); err != nil {
			return err
		}
		out, err := git.RunCommand(ctx, o.RepoPath, "log", "-1", "--format=%s", sha)
		if err != nil {
			return err
		}
		subject = out
		return nil
	})
	return subject, err
}

// IsOnMaster implements Oracle.
func (o *CheckoutOracle) IsOnMaster(ctx context.Context, sha string) (bool, error) {
	var onMaster bool
	err := o.withLock(func() error {
		if err := o.ensureClone(ctx); err != nil {
			return err
		}
		// merge-base --is-ancestor communicates its answer purely through
		// exit status; RunCommand collapses any non-zero exit to
		// ErrOracleUnavailable, so a genuine lookup failure and "sha is not
		// an ancestor" are indistinguishable here. Acceptable: a transient
		// failure just makes the resolver report the bound as unresolvable
		// rather than silently misclassifying a master-ancestry check.
		_, err := git.RunCommand(ctx, o.RepoPath, "merge-base", "--is-ancestor", sha, masterRef)
		onMaster = err == nil
		return nil
	})
	return onMaster, err
}

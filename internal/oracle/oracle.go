// Package oracle answers questions about the rust-lang/rust source history
// that the bisection engine needs but cannot derive from artifact archives
// alone: the first-parent merge-commit chain between two commits, a commit's
// subject line, and whether a SHA is reachable from upstream master.
//
// Two backends implement Oracle: a local git-checkout backend and a hosted
// GitHub API backend, selected by --access. The bisector and orchestrator
// depend only on this interface.
package oracle

import (
	"context"
	"time"
)

// Commit is one entry in a first-parent merge-commit chain.
type Commit struct {
	SHA        string
	AuthorDate time.Time
	Subject    string
	Body       string
}

// Oracle answers first-parent-chain, subject-line, and master-membership
// queries against the rust-lang/rust repository.
type Oracle interface {
	// RangeFirstParent returns the first-parent merge commits strictly
	// between firstSHA (exclusive) and lastSHA (inclusive), in chronological
	// order. When firstSHA equals lastSHA, it returns lastSHA's own commit,
	// which callers use to look up that commit's author date.
	RangeFirstParent(ctx context.Context, firstSHA, lastSHA string) ([]Commit, error)

	// SubjectLineOf returns the first line of sha's commit message.
	SubjectLineOf(ctx context.Context, sha string) (string, error)

	// IsOnMaster reports whether sha is reachable from upstream master.
	IsOnMaster(ctx context.Context, sha string) (bool, error)
}

// Backend names a source-repo oracle implementation, selected by --access.
type Backend string

// Supported oracle backends.
const (
	BackendCheckout Backend = "checkout"
	BackendGitHub   Backend = "github"
)

// IsValidBackend reports whether name is a known oracle backend.
func IsValidBackend(name string) bool {
	return name == string(BackendCheckout) || name == string(BackendGitHub)
}

package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mrz1836/rustbisect/internal/constants"
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// githubAPIRoot is the GitHub REST API root for the rust-lang/rust
// repository this backend queries.
const githubAPIRoot = "https://api.github.com/repos/rust-lang/rust"

// GitHubOracle answers oracle queries against the hosted GitHub API,
// avoiding the need for a local clone at the cost of needing network
// access and an access token for the rate limits a bisection run incurs.
type GitHubOracle struct {
	// Token authenticates requests. Required; constructed from
	// constants.EnvAPIToken by NewGitHubOracle.
	Token string

	// HTTPClient issues requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// NewGitHubOracle constructs a GitHubOracle, reading its token from
// EnvAPIToken. Returns ErrMissingAPIToken if unset.
func NewGitHubOracle() (*GitHubOracle, error) {
	token := os.Getenv(constants.EnvAPIToken)
	if token == "" {
		return nil, bisecterrors.ErrMissingAPIToken
	}
	return &GitHubOracle{Token: token, HTTPClient: http.DefaultClient}, nil
}

type githubCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

func (g *GitHubOracle) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubAPIRoot+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.Token)

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", bisecterrors.ErrOracleUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", bisecterrors.ErrOracleUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response from %s: %v", bisecterrors.ErrOracleUnavailable, path, err)
	}
	return nil
}

// RangeFirstParent implements Oracle using the compare API, keeping only
// merge commits (more than one parent) as an approximation of the
// first-parent chain the checkout backend walks exactly. When firstSHA
// equals lastSHA it returns that one commit, merge or not.
func (g *GitHubOracle) RangeFirstParent(ctx context.Context, firstSHA, lastSHA string) ([]Commit, error) {
	if firstSHA == lastSHA {
		var c githubCommit
		if err := g.get(ctx, "/commits/"+lastSHA, &c); err != nil {
			return nil, err
		}
		return []Commit{{
			SHA:        c.SHA,
			AuthorDate: c.Commit.Author.Date,
			Subject:    firstLine(c.Commit.Message),
			Body:       bodyAfterFirstLine(c.Commit.Message),
		}}, nil
	}

	var page struct {
		Commits []githubCommit `json:"commits"`
	}
	if err := g.get(ctx, fmt.Sprintf("/compare/%s...%s", firstSHA, lastSHA), &page); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(page.Commits))
	for _, c := range page.Commits {
		if len(c.Parents) < 2 {
			continue
		}
		commits = append(commits, Commit{
			SHA:        c.SHA,
			AuthorDate: c.Commit.Author.Date,
			Subject:    firstLine(c.Commit.Message),
			Body:       bodyAfterFirstLine(c.Commit.Message),
		})
	}
	return commits, nil
}

// SubjectLineOf implements Oracle.
func (g *GitHubOracle) SubjectLineOf(ctx context.Context, sha string) (string, error) {
	var c githubCommit
	if err := g.get(ctx, "/commits/"+sha, &c); err != nil {
		return "", err
	}
	return firstLine(c.Commit.Message), nil
}

// IsOnMaster implements Oracle using the compare API: with base=sha,
// head=master, a status of "identical" (same commit) or "ahead" (master
// has commits beyond sha) both mean sha is reachable from master; "behind"
// or "diverged" mean sha has commits master does not.
func (g *GitHubOracle) IsOnMaster(ctx context.Context, sha string) (bool, error) {
	var comparison struct {
		Status string `json:"status"`
	}
	if err := g.get(ctx, fmt.Sprintf("/compare/%s...master", sha), &comparison); err != nil {
		return false, err
	}
	return comparison.Status == "identical" || comparison.Status == "ahead", nil
}

func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return message[:idx]
	}
	return message
}

func bodyAfterFirstLine(message string) string {
	idx := strings.IndexByte(message, '\n')
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(message[idx+1:])
}

package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteHostTransport redirects every request to target, letting tests
// point a GitHubOracle (which always builds URLs against the real
// githubAPIRoot constant) at an httptest server instead.
type rewriteHostTransport struct {
	target string
	base   http.RoundTripper
}

func (t rewriteHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	targetURL, err := url.Parse(t.target)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = targetURL.Scheme
	req.URL.Host = targetURL.Host
	return t.base.RoundTrip(req)
}

func newTestGitHubOracle(t *testing.T, expectedPath string, respond func(w http.ResponseWriter)) (*GitHubOracle, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, expectedPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		respond(w)
	}))

	client := server.Client()
	client.Transport = rewriteHostTransport{target: server.URL, base: http.DefaultTransport}

	return &GitHubOracle{Token: "test-token", HTTPClient: client}, server.Close
}

func TestFirstLine(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Auto merge of #1234 - user:branch, r=reviewer", firstLine("Auto merge of #1234 - user:branch, r=reviewer\n\nbody text"))
	assert.Equal(t, "single line", firstLine("single line"))
}

func TestBodyAfterFirstLine(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "body text", bodyAfterFirstLine("subject\n\nbody text"))
	assert.Equal(t, "", bodyAfterFirstLine("subject only"))
}

func TestGitHubOracle_SubjectLineOf(t *testing.T) {
	t.Parallel()

	g, closeFn := newTestGitHubOracle(t, "/repos/rust-lang/rust/commits/abc123", func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sha": "abc123",
			"commit": map[string]any{
				"message": "Rollup merge of #5 - a:b, r=c\n\nbody",
			},
		})
	})
	defer closeFn()

	subject, err := g.SubjectLineOf(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Rollup merge of #5 - a:b, r=c", subject)
}

func TestGitHubOracle_IsOnMaster(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status string
		want   bool
	}{
		{"identical", true},
		{"ahead", true},
		{"behind", false},
		{"diverged", false},
	}

	for _, tc := range cases {
		g, closeFn := newTestGitHubOracle(t, "/repos/rust-lang/rust/compare/abc123...master", func(w http.ResponseWriter) {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": tc.status})
		})

		onMaster, err := g.IsOnMaster(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, tc.want, onMaster, "status %s", tc.status)
		closeFn()
	}
}

func TestGitHubOracle_RangeFirstParent_KeepsOnlyMergeCommits(t *testing.T) {
	t.Parallel()

	g, closeFn := newTestGitHubOracle(t, "/repos/rust-lang/rust/compare/aaa...bbb", func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commits": []map[string]any{
				{
					"sha":     "merge1",
					"commit":  map[string]any{"message": "Auto merge of #1 - a:b, r=c", "author": map[string]any{"date": "2018-07-30T00:00:00Z"}},
					"parents": []map[string]any{{"sha": "p1"}, {"sha": "p2"}},
				},
				{
					"sha":     "nonmerge",
					"commit":  map[string]any{"message": "fix typo", "author": map[string]any{"date": "2018-07-29T00:00:00Z"}},
					"parents": []map[string]any{{"sha": "p1"}},
				},
			},
		})
	})
	defer closeFn()

	commits, err := g.RangeFirstParent(context.Background(), "aaa", "bbb")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "merge1", commits[0].SHA)
}

func TestNewGitHubOracle_RequiresToken(t *testing.T) {
	t.Setenv("API_TOKEN", "")
	_, err := NewGitHubOracle()
	require.Error(t, err)
}

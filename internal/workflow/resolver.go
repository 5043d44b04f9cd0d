package workflow

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v80/github"
)

// Resolver turns a symbolic action reference (repository + floating
// tag/branch) into a 40-character commit identifier. It is consulted only
// during autopin; validation never resolves anything.
type Resolver interface {
	Resolve(ctx context.Context, owner, repo, ref string) (string, error)
}

type authTransport struct {
	token string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// githubResolver resolves refs through the GitHub commits API.
type githubResolver struct {
	client *gh.Client
}

// NewGitHubResolver builds a Resolver backed by the GitHub API. An empty
// token yields an unauthenticated client, subject to the anonymous rate
// limit.
func NewGitHubResolver(token string) Resolver {
	var httpClient *http.Client
	if token != "" {
		httpClient = &http.Client{
			Transport: &authTransport{token: token},
		}
	}
	return &githubResolver{client: gh.NewClient(httpClient)}
}

func (r *githubResolver) Resolve(ctx context.Context, owner, repo, ref string) (string, error) {
	sha, _, err := r.client.Repositories.GetCommitSHA1(ctx, owner, repo, ref, "")
	if err != nil {
		return "", fmt.Errorf("resolve %s/%s@%s: %w", owner, repo, ref, err)
	}
	if !IsFullSHA(strings.ToLower(sha)) {
		return "", fmt.Errorf("resolve %s/%s@%s: unexpected commit id %q", owner, repo, ref, sha)
	}
	return strings.ToLower(sha), nil
}

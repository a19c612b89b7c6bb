package forge

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

const githubPageSize = 100

// GitHubClient implements Client for github.com and GitHub Enterprise.
type GitHubClient struct {
	client *github.Client
}

// NewGitHubClient creates a token-authenticated client. An empty serverURL or
// https://github.com targets the public API; anything else is treated as a
// GitHub Enterprise host whose API lives under /api/v3/.
func NewGitHubClient(httpClient *http.Client, serverURL, token string) (*GitHubClient, error) {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	tc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	tc.Timeout = httpClient.Timeout

	gh := github.NewClient(tc)
	if isEnterprise(serverURL) {
		var err error
		gh, err = gh.WithEnterpriseURLs(serverURL, serverURL)
		if err != nil {
			return nil, errors.ConfigError("invalid GitHub Enterprise URL").
				WithCause(err).
				WithContext("server", serverURL).
				Build()
		}
	}
	return &GitHubClient{client: gh}, nil
}

func isEnterprise(serverURL string) bool {
	if serverURL == "" {
		return false
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	return host != "github.com" && host != "api.github.com"
}

func (c *GitHubClient) Type() config.ForgeType { return config.ForgeGitHub }

func (c *GitHubClient) CurrentUser(ctx context.Context) (string, error) {
	u, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", githubError(resp, err, "get authenticated user")
	}
	return u.GetLogin(), nil
}

func (c *GitHubClient) ListRepositories(ctx context.Context) ([]RepositoryRef, error) {
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "full_name",
		ListOptions: github.ListOptions{PerPage: githubPageSize},
	}
	var out []RepositoryRef
	for {
		repos, resp, err := c.client.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, githubError(resp, err, "list repositories")
		}
		for _, r := range repos {
			out = append(out, RepositoryRef{
				Owner:         r.GetOwner().GetLogin(),
				Name:          r.GetName(),
				CloneURL:      r.GetCloneURL(),
				DefaultBranch: r.GetDefaultBranch(),
				Private:       r.GetPrivate(),
				Archived:      r.GetArchived(),
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *GitHubClient) ListBranches(ctx context.Context, repo RepositoryRef) ([]BranchRef, error) {
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: githubPageSize}}
	var out []BranchRef
	for {
		branches, resp, err := c.client.Repositories.ListBranches(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, githubError(resp, err, "list branches").WithContext("repository", repo.FullName())
		}
		for _, b := range branches {
			out = append(out, BranchRef{
				Repository: repo,
				Name:       b.GetName(),
				HeadCommit: b.GetCommit().GetSHA(),
				Kind:       RefBranch,
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *GitHubClient) ListTags(ctx context.Context, repo RepositoryRef) ([]BranchRef, error) {
	opts := &github.ListOptions{PerPage: githubPageSize}
	var out []BranchRef
	for {
		tags, resp, err := c.client.Repositories.ListTags(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, githubError(resp, err, "list tags").WithContext("repository", repo.FullName())
		}
		for _, t := range tags {
			out = append(out, BranchRef{
				Repository: repo,
				Name:       t.GetName(),
				HeadCommit: t.GetCommit().GetSHA(),
				Kind:       RefTag,
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListStatuses returns statuses in the order GitHub reports them (reverse chronological).
func (c *GitHubClient) ListStatuses(ctx context.Context, repo RepositoryRef, commit string) ([]Status, error) {
	opts := &github.ListOptions{PerPage: githubPageSize}
	var out []Status
	for {
		statuses, resp, err := c.client.Repositories.ListStatuses(ctx, repo.Owner, repo.Name, commit, opts)
		if err != nil {
			return nil, githubError(resp, err, "list statuses").
				WithContext("repository", repo.FullName()).
				WithContext("commit", commit)
		}
		for _, s := range statuses {
			out = append(out, Status{
				State:       StatusState(s.GetState()),
				Context:     s.GetContext(),
				Description: s.GetDescription(),
				TargetURL:   s.GetTargetURL(),
				CreatedAt:   s.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *GitHubClient) CreateStatus(ctx context.Context, repo RepositoryRef, commit string, status Status) error {
	if !status.State.Valid() {
		return ErrInvalidState.WithContext("state", string(status.State))
	}
	state := string(status.State)
	rs := &github.RepoStatus{State: &state, Context: &status.Context}
	if status.Description != "" {
		rs.Description = &status.Description
	}
	if status.TargetURL != "" {
		rs.TargetURL = &status.TargetURL
	}
	_, resp, err := c.client.Repositories.CreateStatus(ctx, repo.Owner, repo.Name, commit, rs)
	if err != nil {
		return githubError(resp, err, "create status").
			WithContext("repository", repo.FullName()).
			WithContext("commit", commit).
			WithContext("state", state)
	}
	return nil
}

// githubError converts a go-github failure into a classified error.
func githubError(resp *github.Response, err error, op string) *errors.ClassifiedError {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case stderrors.As(err, &rateErr), stderrors.As(err, &abuseErr):
		return errors.ForgeError(op + ": rate limited").WithCause(err).RateLimit().Build()
	case resp != nil && resp.Response != nil:
		return classifyStatus(resp.StatusCode, fmt.Sprintf("%s: %s", op, resp.Status)).
			WithCause(err).
			WithContext("code", resp.StatusCode).
			Build()
	default:
		return errors.NetworkError(op + " failed").WithCause(err).Build()
	}
}

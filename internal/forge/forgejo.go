package forge

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
)

const forgejoPageSize = 50

// ForgejoClient implements Client for Forgejo and Gitea (API v1).
type ForgejoClient struct {
	*BaseForge
}

// NewForgejoClient creates a client for the instance at serverURL.
// The /api/v1 suffix is appended unless already present.
func NewForgejoClient(httpClient *http.Client, serverURL, token string) *ForgejoClient {
	apiURL := strings.TrimSuffix(serverURL, "/")
	if !strings.HasSuffix(apiURL, "/api/v1") {
		apiURL += "/api/v1"
	}
	base := NewBaseForge(httpClient, apiURL, token)
	base.SetAuthHeaderPrefix("token ")
	return &ForgejoClient{BaseForge: base}
}

func (c *ForgejoClient) Type() config.ForgeType { return config.ForgeForgejo }

type forgejoUser struct {
	Login    string `json:"login"`
	Username string `json:"username"`
}

type forgejoRepo struct {
	Name          string      `json:"name"`
	FullName      string      `json:"full_name"`
	Private       bool        `json:"private"`
	Archived      bool        `json:"archived"`
	CloneURL      string      `json:"clone_url"`
	DefaultBranch string      `json:"default_branch"`
	Owner         forgejoUser `json:"owner"`
}

type forgejoBranch struct {
	Name   string `json:"name"`
	Commit struct {
		ID string `json:"id"`
	} `json:"commit"`
}

type forgejoTag struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type forgejoStatus struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	State       string    `json:"state"`
	Context     string    `json:"context"`
	Description string    `json:"description"`
	TargetURL   string    `json:"target_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *ForgejoClient) CurrentUser(ctx context.Context) (string, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, "/user", nil)
	if err != nil {
		return "", err
	}
	var u forgejoUser
	if err := c.DoRequest(req, &u); err != nil {
		return "", err
	}
	if u.Login != "" {
		return u.Login, nil
	}
	return u.Username, nil
}

func (c *ForgejoClient) ListRepositories(ctx context.Context) ([]RepositoryRef, error) {
	repos, err := PaginatedFetchHelper(ctx, "/user/repos", "page", "limit", forgejoPageSize,
		func(endpoint string) ([]forgejoRepo, error) {
			var page []forgejoRepo
			if err := c.getJSON(ctx, endpoint, &page); err != nil {
				return nil, err
			}
			return page, nil
		})
	if err != nil {
		return nil, err
	}
	out := make([]RepositoryRef, 0, len(repos))
	for _, r := range repos {
		ref, ok := ParseFullName(r.FullName)
		if !ok {
			ref = RepositoryRef{Owner: r.Owner.Login, Name: r.Name}
		}
		ref.CloneURL = r.CloneURL
		ref.DefaultBranch = r.DefaultBranch
		ref.Private = r.Private
		ref.Archived = r.Archived
		out = append(out, ref)
	}
	return out, nil
}

func (c *ForgejoClient) ListBranches(ctx context.Context, repo RepositoryRef) ([]BranchRef, error) {
	branches, err := PaginatedFetchHelper(ctx, repoPath(repo, "branches"), "page", "limit", forgejoPageSize,
		func(endpoint string) ([]forgejoBranch, error) {
			var page []forgejoBranch
			if err := c.getJSON(ctx, endpoint, &page); err != nil {
				return nil, err
			}
			return page, nil
		})
	if err != nil {
		return nil, err
	}
	out := make([]BranchRef, 0, len(branches))
	for _, b := range branches {
		out = append(out, BranchRef{Repository: repo, Name: b.Name, HeadCommit: b.Commit.ID, Kind: RefBranch})
	}
	return out, nil
}

func (c *ForgejoClient) ListTags(ctx context.Context, repo RepositoryRef) ([]BranchRef, error) {
	tags, err := PaginatedFetchHelper(ctx, repoPath(repo, "tags"), "page", "limit", forgejoPageSize,
		func(endpoint string) ([]forgejoTag, error) {
			var page []forgejoTag
			if err := c.getJSON(ctx, endpoint, &page); err != nil {
				return nil, err
			}
			return page, nil
		})
	if err != nil {
		return nil, err
	}
	out := make([]BranchRef, 0, len(tags))
	for _, t := range tags {
		out = append(out, BranchRef{Repository: repo, Name: t.Name, HeadCommit: t.Commit.SHA, Kind: RefTag})
	}
	return out, nil
}

func (c *ForgejoClient) ListStatuses(ctx context.Context, repo RepositoryRef, commit string) ([]Status, error) {
	raw, err := PaginatedFetchHelper(ctx, repoPath(repo, "commits", commit, "statuses"), "page", "limit", forgejoPageSize,
		func(endpoint string) ([]forgejoStatus, error) {
			var page []forgejoStatus
			if err := c.getJSON(ctx, endpoint, &page); err != nil {
				return nil, err
			}
			return page, nil
		})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(raw, func(i, j int) bool {
		if !raw[i].CreatedAt.Equal(raw[j].CreatedAt) {
			return raw[i].CreatedAt.After(raw[j].CreatedAt)
		}
		return raw[i].ID > raw[j].ID
	})
	out := make([]Status, 0, len(raw))
	for _, s := range raw {
		state := s.Status
		if state == "" {
			state = s.State
		}
		out = append(out, Status{
			State:       StatusState(state),
			Context:     s.Context,
			Description: s.Description,
			TargetURL:   s.TargetURL,
			CreatedAt:   s.CreatedAt,
		})
	}
	return out, nil
}

func (c *ForgejoClient) CreateStatus(ctx context.Context, repo RepositoryRef, commit string, status Status) error {
	if !status.State.Valid() {
		return ErrInvalidState.WithContext("state", string(status.State))
	}
	body := map[string]string{
		"state":       string(status.State),
		"context":     status.Context,
		"description": status.Description,
		"target_url":  status.TargetURL,
	}
	req, err := c.NewRequest(ctx, http.MethodPost, repoPath(repo, "statuses", commit), body)
	if err != nil {
		return err
	}
	return c.DoRequest(req, nil)
}

func (c *ForgejoClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.DoRequest(req, out)
}

func repoPath(repo RepositoryRef, parts ...string) string {
	segments := append([]string{"repos", repo.Owner, repo.Name}, parts...)
	return "/" + strings.Join(segments, "/")
}

// Package github wraps the GitHub REST API behind the small surface the
// dashboard needs: token verification, the authenticated profile, and
// repository data.
package github

import (
	"context"
	"fmt"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/sumire/repoboard/internal/domain"
)

// DefaultTimeout is the per-request timeout for GitHub API calls.
const DefaultTimeout = 15 * time.Second

// Client wraps the go-github client for a single access token.
type Client struct {
	gh *gh.Client
}

// NewClient builds a client authenticated with the given bearer token.
func NewClient(ctx context.Context, token string) *Client {
	return NewClientWithTimeout(ctx, token, DefaultTimeout)
}

// NewClientWithTimeout builds an authenticated client with a custom
// per-request timeout. A non-positive timeout falls back to DefaultTimeout.
func NewClientWithTimeout(ctx context.Context, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = timeout
	return &Client{gh: gh.NewClient(tc)}
}

// NewClientWithBaseURL points the client at a non-default API base, used by
// tests against a local server.
func NewClientWithBaseURL(ctx context.Context, token, baseURL string) (*Client, error) {
	c := NewClient(ctx, token)
	var err error
	c.gh, err = c.gh.WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("set base url: %w", err)
	}
	return c, nil
}

// Verify makes exactly one authenticated call to confirm the token is
// currently valid. Any failure, expired token or transport error alike,
// reports false.
func (c *Client) Verify(ctx context.Context) bool {
	_, _, err := c.gh.Users.Get(ctx, "")
	return err == nil
}

// CurrentUser fetches the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*domain.GitHubUser, error) {
	u, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetch authenticated user: %w", err)
	}
	return &domain.GitHubUser{
		ID:          u.GetID(),
		Login:       u.GetLogin(),
		AvatarURL:   u.GetAvatarURL(),
		HTMLURL:     u.GetHTMLURL(),
		Name:        u.Name,
		Company:     u.Company,
		Location:    u.Location,
		Email:       u.Email,
		Bio:         u.Bio,
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
	}, nil
}

// ListRepositories returns all repositories the authenticated user can
// access: owned, collaborator, and organization member, newest activity
// first.
func (c *Client) ListRepositories(ctx context.Context) ([]domain.GitHubRepository, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Visibility:  "all",
		Affiliation: "owner,collaborator,organization_member",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []domain.GitHubRepository
	for {
		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("list repositories: %w", err)
		}
		for _, r := range repos {
			all = append(all, toRepository(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListCommits returns one page of a repository's commit history.
func (c *Client) ListCommits(ctx context.Context, owner, repo string, page, perPage int) ([]domain.GitHubCommit, error) {
	opts := &gh.CommitsListOptions{
		ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
	}
	commits, _, err := c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("list commits for %s/%s: %w", owner, repo, err)
	}

	out := make([]domain.GitHubCommit, 0, len(commits))
	for _, cm := range commits {
		commit := domain.GitHubCommit{
			SHA:     cm.GetSHA(),
			HTMLURL: cm.GetHTMLURL(),
		}
		if inner := cm.GetCommit(); inner != nil {
			commit.Message = inner.GetMessage()
			if author := inner.GetAuthor(); author != nil {
				commit.AuthorName = author.GetName()
				if d := author.GetDate(); !d.IsZero() {
					t := d.Time
					commit.Date = &t
				}
			}
		}
		if author := cm.GetAuthor(); author != nil {
			commit.AuthorLogin = author.Login
		}
		out = append(out, commit)
	}
	return out, nil
}

// ListIssues returns one page of a repository's issues. Pull requests share
// the issues endpoint and are filtered out.
func (c *Client) ListIssues(ctx context.Context, owner, repo, state string, page, perPage int) ([]domain.GitHubIssue, error) {
	if state == "" {
		state = "open"
	}
	opts := &gh.IssueListByRepoOptions{
		State:       state,
		ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
	}
	issues, _, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("list issues for %s/%s: %w", owner, repo, err)
	}

	out := make([]domain.GitHubIssue, 0, len(issues))
	for _, is := range issues {
		if is.IsPullRequest() {
			continue
		}
		issue := domain.GitHubIssue{
			Number:    is.GetNumber(),
			Title:     is.GetTitle(),
			State:     is.GetState(),
			Comments:  is.GetComments(),
			HTMLURL:   is.GetHTMLURL(),
			UserLogin: is.GetUser().GetLogin(),
		}
		if t := is.GetCreatedAt(); !t.IsZero() {
			created := t.Time
			issue.CreatedAt = &created
		}
		for _, l := range is.Labels {
			issue.Labels = append(issue.Labels, l.GetName())
		}
		out = append(out, issue)
	}
	return out, nil
}

// Readme returns the repository's README content as decoded markdown.
func (c *Client) Readme(ctx context.Context, owner, repo string) (string, error) {
	readme, _, err := c.gh.Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		return "", fmt.Errorf("fetch readme for %s/%s: %w", owner, repo, err)
	}
	content, err := readme.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode readme for %s/%s: %w", owner, repo, err)
	}
	return content, nil
}

// RateLimit reports the remaining core API quota for the token.
func (c *Client) RateLimit(ctx context.Context) (*domain.GitHubRateLimit, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rate limit: %w", err)
	}
	core := limits.GetCore()
	return &domain.GitHubRateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		ResetAt:   core.Reset.Time,
	}, nil
}

func toRepository(r *gh.Repository) domain.GitHubRepository {
	repo := domain.GitHubRepository{
		ID:            r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		OwnerLogin:    r.GetOwner().GetLogin(),
		Private:       r.GetPrivate(),
		HTMLURL:       r.GetHTMLURL(),
		Description:   r.Description,
		Fork:          r.GetFork(),
		Language:      r.Language,
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		Topics:        r.Topics,
		Visibility:    r.GetVisibility(),
		DefaultBranch: r.GetDefaultBranch(),
		Archived:      r.GetArchived(),
	}
	if t := r.GetPushedAt(); !t.IsZero() {
		pushed := t.Time
		repo.PushedAt = &pushed
	}
	if t := r.GetUpdatedAt(); !t.IsZero() {
		updated := t.Time
		repo.UpdatedAt = &updated
	}
	return repo
}

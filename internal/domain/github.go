package domain

import "time"

// GitHubUser is the externally sourced identity of a linked GitHub account.
type GitHubUser struct {
	ID          int64   `json:"id"`
	Login       string  `json:"login"`
	AvatarURL   string  `json:"avatar_url"`
	HTMLURL     string  `json:"html_url"`
	Name        *string `json:"name,omitempty"`
	Company     *string `json:"company,omitempty"`
	Location    *string `json:"location,omitempty"`
	Email       *string `json:"email,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

// GitHubRepository is a fetched snapshot of a repository, not a live
// subscription.
type GitHubRepository struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	OwnerLogin    string     `json:"owner_login"`
	Private       bool       `json:"private"`
	HTMLURL       string     `json:"html_url"`
	Description   *string    `json:"description,omitempty"`
	Fork          bool       `json:"fork"`
	Language      *string    `json:"language,omitempty"`
	Stars         int        `json:"stargazers_count"`
	Forks         int        `json:"forks_count"`
	OpenIssues    int        `json:"open_issues_count"`
	Topics        []string   `json:"topics,omitempty"`
	Visibility    string     `json:"visibility"`
	DefaultBranch string     `json:"default_branch"`
	Archived      bool       `json:"archived"`
	PushedAt      *time.Time `json:"pushed_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// GitHubCommit is a single commit in a repository's history.
type GitHubCommit struct {
	SHA         string     `json:"sha"`
	Message     string     `json:"message"`
	AuthorName  string     `json:"author_name"`
	AuthorLogin *string    `json:"author_login,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	HTMLURL     string     `json:"html_url"`
}

// GitHubIssue is an issue in a repository.
type GitHubIssue struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	UserLogin string     `json:"user_login"`
	Comments  int        `json:"comments"`
	Labels    []string   `json:"labels,omitempty"`
	HTMLURL   string     `json:"html_url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// GitHubRateLimit reports the remaining core API quota.
type GitHubRateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// GitHubStats aggregates the authenticated user's repository totals.
type GitHubStats struct {
	TotalRepos int            `json:"total_repos"`
	TotalStars int            `json:"total_stars"`
	TotalForks int            `json:"total_forks"`
	Languages  map[string]int `json:"languages"`
}

// ConnectionState is the in-memory view of a local account's GitHub
// connection. The access token is held only for outbound API calls and is
// never rendered to the UI.
//
// Invariant: IsConnected implies AccessToken != nil. Repositories is valid
// only while connected and is cleared on disconnect.
type ConnectionState struct {
	IsConnected  bool               `json:"is_connected"`
	User         *GitHubUser        `json:"user,omitempty"`
	AccessToken  *string            `json:"-"`
	Repositories []GitHubRepository `json:"repositories"`
	IsLoading    bool               `json:"is_loading"`
	Error        *string            `json:"error,omitempty"`
}

// LinkedIdentity is the durable record associating a local account with a
// GitHub account and its access credential. Exactly one row per owner.
type LinkedIdentity struct {
	ID             int64     `json:"id" db:"id"`
	OwnerID        int64     `json:"owner_id" db:"owner_id"`
	GitHubUserID   int64     `json:"github_user_id" db:"github_user_id"`
	GitHubUsername string    `json:"github_username" db:"github_username"`
	AccessToken    string    `json:"-" db:"access_token"`
	Scope          string    `json:"scope" db:"scope"`
	AvatarURL      *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	Name           *string   `json:"name,omitempty" db:"name"`
	Email          *string   `json:"email,omitempty" db:"email"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

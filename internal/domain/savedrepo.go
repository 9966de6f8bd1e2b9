package domain

import "time"

// RepoStatus represents the workspace lifecycle state of a saved repository.
type RepoStatus string

const (
	RepoStatusActive   RepoStatus = "active"
	RepoStatusArchived RepoStatus = "archived"
	RepoStatusDeleted  RepoStatus = "deleted"
)

// SavedRepository is a denormalized projection of a GitHub repository kept in
// the managed workspace, with an editable status/category/priority/notes
// overlay. Uniquely keyed by (owner, full name).
type SavedRepository struct {
	ID          int64      `json:"id" db:"id"`
	OwnerID     int64      `json:"owner_id" db:"owner_id"`
	GitHubID    int64      `json:"github_id" db:"github_id"`
	Name        string     `json:"name" db:"name"`
	FullName    string     `json:"full_name" db:"full_name"`
	Description *string    `json:"description,omitempty" db:"description"`
	Language    *string    `json:"language,omitempty" db:"language"`
	Private     bool       `json:"private" db:"private"`
	HTMLURL     string     `json:"html_url" db:"html_url"`
	Stars       int        `json:"stars" db:"stars"`
	Forks       int        `json:"forks" db:"forks"`
	OpenIssues  int        `json:"open_issues" db:"open_issues"`
	Status      RepoStatus `json:"status" db:"status"`
	Category    *string    `json:"category,omitempty" db:"category"`
	Priority    *string    `json:"priority,omitempty" db:"priority"`
	Notes       *string    `json:"notes,omitempty" db:"notes"`
	PushedAt    *time.Time `json:"pushed_at,omitempty" db:"pushed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// RepoFilter narrows workspace listings.
type RepoFilter struct {
	Language string
	Status   RepoStatus
}

// RepoMetadata is the editable overlay on a saved repository.
type RepoMetadata struct {
	Category *string
	Priority *string
	Notes    *string
}

// SavedRepoStats summarizes the workspace.
type SavedRepoStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByLanguage map[string]int `json:"by_language"`
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/repoboard/internal/domain"
)

// SavedRepoRepository persists the workspace's saved repositories.
type SavedRepoRepository struct {
	db *sqlx.DB
}

// NewSavedRepoRepository creates a new SavedRepoRepository.
func NewSavedRepoRepository(db *sqlx.DB) *SavedRepoRepository {
	return &SavedRepoRepository{db: db}
}

const savedRepoColumns = `id, owner_id, github_id, name, full_name, description, language, private,
	html_url, stars, forks, open_issues, status, category, priority, notes,
	pushed_at, created_at, updated_at`

// Upsert saves a repository projection, keyed by (owner_id, full_name).
// Snapshot fields are refreshed; the editable overlay is left untouched on
// conflict.
func (r *SavedRepoRepository) Upsert(ctx context.Context, repo domain.SavedRepository) (*domain.SavedRepository, error) {
	var result domain.SavedRepository
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO saved_repositories
		     (owner_id, github_id, name, full_name, description, language, private,
		      html_url, stars, forks, open_issues, status, pushed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (owner_id, full_name)
		 DO UPDATE SET github_id = EXCLUDED.github_id,
		               description = EXCLUDED.description,
		               language = EXCLUDED.language,
		               private = EXCLUDED.private,
		               html_url = EXCLUDED.html_url,
		               stars = EXCLUDED.stars,
		               forks = EXCLUDED.forks,
		               open_issues = EXCLUDED.open_issues,
		               pushed_at = EXCLUDED.pushed_at,
		               updated_at = NOW()
		 RETURNING `+savedRepoColumns,
		repo.OwnerID, repo.GitHubID, repo.Name, repo.FullName, repo.Description,
		repo.Language, repo.Private, repo.HTMLURL, repo.Stars, repo.Forks,
		repo.OpenIssues, repo.Status, repo.PushedAt,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("upsert saved repository: %w", err)
	}
	return &result, nil
}

// List retrieves the owner's saved repositories, optionally filtered by
// language and status. Soft-deleted rows are excluded unless asked for.
func (r *SavedRepoRepository) List(ctx context.Context, ownerID int64, filter domain.RepoFilter) ([]domain.SavedRepository, error) {
	query := `SELECT ` + savedRepoColumns + ` FROM saved_repositories WHERE owner_id = $1`
	args := []any{ownerID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	} else {
		query += fmt.Sprintf(" AND status != '%s'", domain.RepoStatusDeleted)
	}
	if filter.Language != "" {
		args = append(args, filter.Language)
		query += fmt.Sprintf(" AND language = $%d", len(args))
	}
	query += " ORDER BY updated_at DESC"

	var repos []domain.SavedRepository
	if err := r.db.SelectContext(ctx, &repos, query, args...); err != nil {
		return nil, fmt.Errorf("list saved repositories: %w", err)
	}
	return repos, nil
}

// FindByFullName retrieves a saved repository by its full name.
func (r *SavedRepoRepository) FindByFullName(ctx context.Context, ownerID int64, fullName string) (*domain.SavedRepository, error) {
	var repo domain.SavedRepository
	err := r.db.GetContext(ctx, &repo,
		`SELECT `+savedRepoColumns+` FROM saved_repositories
		 WHERE owner_id = $1 AND full_name = $2`, ownerID, fullName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find saved repository %s: %w", fullName, err)
	}
	return &repo, nil
}

// UpdateStatus moves a saved repository between workspace states.
func (r *SavedRepoRepository) UpdateStatus(ctx context.Context, ownerID, id int64, status domain.RepoStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE saved_repositories SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND owner_id = $3`, status, id, ownerID)
	if err != nil {
		return fmt.Errorf("update saved repository status: %w", err)
	}
	return requireRow(res)
}

// UpdateMetadata replaces the editable overlay of a saved repository.
func (r *SavedRepoRepository) UpdateMetadata(ctx context.Context, ownerID, id int64, meta domain.RepoMetadata) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE saved_repositories
		 SET category = $1, priority = $2, notes = $3, updated_at = NOW()
		 WHERE id = $4 AND owner_id = $5`,
		meta.Category, meta.Priority, meta.Notes, id, ownerID)
	if err != nil {
		return fmt.Errorf("update saved repository metadata: %w", err)
	}
	return requireRow(res)
}

// Delete removes a saved repository from the workspace.
func (r *SavedRepoRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_repositories WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete saved repository: %w", err)
	}
	return requireRow(res)
}

// Stats aggregates the owner's workspace by status and language.
func (r *SavedRepoRepository) Stats(ctx context.Context, ownerID int64) (*domain.SavedRepoStats, error) {
	stats := &domain.SavedRepoStats{
		ByStatus:   map[string]int{},
		ByLanguage: map[string]int{},
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM saved_repositories
		 WHERE owner_id = $1 GROUP BY status`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("saved repository stats by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("saved repository stats by status: %w", err)
	}

	langRows, err := r.db.QueryContext(ctx,
		`SELECT language, COUNT(*) FROM saved_repositories
		 WHERE owner_id = $1 AND language IS NOT NULL GROUP BY language`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("saved repository stats by language: %w", err)
	}
	defer langRows.Close()
	for langRows.Next() {
		var language string
		var count int
		if err := langRows.Scan(&language, &count); err != nil {
			return nil, fmt.Errorf("scan language stats: %w", err)
		}
		stats.ByLanguage[language] = count
	}
	if err := langRows.Err(); err != nil {
		return nil, fmt.Errorf("saved repository stats by language: %w", err)
	}

	return stats, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

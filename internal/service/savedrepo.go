package service

import (
	"context"
	"fmt"

	"github.com/sumire/repoboard/internal/domain"
)

// SavedRepoStore defines the workspace data access interface.
type SavedRepoStore interface {
	Upsert(ctx context.Context, repo domain.SavedRepository) (*domain.SavedRepository, error)
	List(ctx context.Context, ownerID int64, filter domain.RepoFilter) ([]domain.SavedRepository, error)
	FindByFullName(ctx context.Context, ownerID int64, fullName string) (*domain.SavedRepository, error)
	UpdateStatus(ctx context.Context, ownerID, id int64, status domain.RepoStatus) error
	UpdateMetadata(ctx context.Context, ownerID, id int64, meta domain.RepoMetadata) error
	Delete(ctx context.Context, ownerID, id int64) error
	Stats(ctx context.Context, ownerID int64) (*domain.SavedRepoStats, error)
}

// ConnectionSource exposes the cached GitHub connection snapshot that
// bookmarking draws repositories from.
type ConnectionSource interface {
	Snapshot(ownerID int64) domain.ConnectionState
}

// SavedRepoService manages the workspace: saving repositories out of the
// connection snapshot and editing their overlay.
type SavedRepoService struct {
	repos      SavedRepoStore
	connection ConnectionSource
}

// NewSavedRepoService creates a new SavedRepoService.
func NewSavedRepoService(repos SavedRepoStore, connection ConnectionSource) *SavedRepoService {
	return &SavedRepoService{repos: repos, connection: connection}
}

// Save bookmarks one repository from the owner's fetched snapshot into the
// workspace. Requires a connected GitHub account.
func (s *SavedRepoService) Save(ctx context.Context, ownerID int64, fullName string) (*domain.SavedRepository, error) {
	repo, err := s.fromSnapshot(ownerID, fullName)
	if err != nil {
		return nil, err
	}
	saved, err := s.repos.Upsert(ctx, *repo)
	if err != nil {
		return nil, fmt.Errorf("save repository %s: %w", fullName, err)
	}
	return saved, nil
}

// SaveBatch bookmarks several repositories at once, skipping names missing
// from the snapshot.
func (s *SavedRepoService) SaveBatch(ctx context.Context, ownerID int64, fullNames []string) ([]domain.SavedRepository, error) {
	snap := s.connection.Snapshot(ownerID)
	if !snap.IsConnected {
		return nil, domain.ErrNotConnected
	}

	byName := make(map[string]domain.GitHubRepository, len(snap.Repositories))
	for _, r := range snap.Repositories {
		byName[r.FullName] = r
	}

	var saved []domain.SavedRepository
	for _, name := range fullNames {
		r, ok := byName[name]
		if !ok {
			continue
		}
		result, err := s.repos.Upsert(ctx, project(ownerID, r))
		if err != nil {
			return saved, fmt.Errorf("save repository %s: %w", name, err)
		}
		saved = append(saved, *result)
	}
	return saved, nil
}

// List returns the owner's saved repositories, optionally filtered.
func (s *SavedRepoService) List(ctx context.Context, ownerID int64, filter domain.RepoFilter) ([]domain.SavedRepository, error) {
	return s.repos.List(ctx, ownerID, filter)
}

// Get returns one saved repository by full name.
func (s *SavedRepoService) Get(ctx context.Context, ownerID int64, fullName string) (*domain.SavedRepository, error) {
	return s.repos.FindByFullName(ctx, ownerID, fullName)
}

// UpdateStatus moves a saved repository between workspace states.
func (s *SavedRepoService) UpdateStatus(ctx context.Context, ownerID, id int64, status domain.RepoStatus) error {
	switch status {
	case domain.RepoStatusActive, domain.RepoStatusArchived, domain.RepoStatusDeleted:
	default:
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	return s.repos.UpdateStatus(ctx, ownerID, id, status)
}

// UpdateMetadata replaces the category/priority/notes overlay.
func (s *SavedRepoService) UpdateMetadata(ctx context.Context, ownerID, id int64, meta domain.RepoMetadata) error {
	return s.repos.UpdateMetadata(ctx, ownerID, id, meta)
}

// Delete removes a saved repository from the workspace.
func (s *SavedRepoService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.repos.Delete(ctx, ownerID, id)
}

// Stats summarizes the owner's workspace.
func (s *SavedRepoService) Stats(ctx context.Context, ownerID int64) (*domain.SavedRepoStats, error) {
	return s.repos.Stats(ctx, ownerID)
}

func (s *SavedRepoService) fromSnapshot(ownerID int64, fullName string) (*domain.SavedRepository, error) {
	snap := s.connection.Snapshot(ownerID)
	if !snap.IsConnected {
		return nil, domain.ErrNotConnected
	}
	for _, r := range snap.Repositories {
		if r.FullName == fullName {
			repo := project(ownerID, r)
			return &repo, nil
		}
	}
	return nil, fmt.Errorf("%w: repository %s not in fetched snapshot", domain.ErrNotFound, fullName)
}

func project(ownerID int64, r domain.GitHubRepository) domain.SavedRepository {
	return domain.SavedRepository{
		OwnerID:     ownerID,
		GitHubID:    r.ID,
		Name:        r.Name,
		FullName:    r.FullName,
		Description: r.Description,
		Language:    r.Language,
		Private:     r.Private,
		HTMLURL:     r.HTMLURL,
		Stars:       r.Stars,
		Forks:       r.Forks,
		OpenIssues:  r.OpenIssues,
		Status:      domain.RepoStatusActive,
		PushedAt:    r.PushedAt,
	}
}

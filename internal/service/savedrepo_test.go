package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/repoboard/internal/domain"
)

type fakeSavedRepoStore struct {
	records map[string]domain.SavedRepository // keyed owner/fullName
	nextID  int64
}

func newFakeSavedRepoStore() *fakeSavedRepoStore {
	return &fakeSavedRepoStore{records: map[string]domain.SavedRepository{}}
}

func (f *fakeSavedRepoStore) key(ownerID int64, fullName string) string {
	return fmt.Sprintf("%d/%s", ownerID, fullName)
}

func (f *fakeSavedRepoStore) Upsert(_ context.Context, repo domain.SavedRepository) (*domain.SavedRepository, error) {
	k := f.key(repo.OwnerID, repo.FullName)
	if existing, ok := f.records[k]; ok {
		repo.ID = existing.ID
		repo.Status = existing.Status
		repo.Category = existing.Category
		repo.Priority = existing.Priority
		repo.Notes = existing.Notes
	} else {
		f.nextID++
		repo.ID = f.nextID
	}
	f.records[k] = repo
	result := repo
	return &result, nil
}

func (f *fakeSavedRepoStore) List(_ context.Context, ownerID int64, filter domain.RepoFilter) ([]domain.SavedRepository, error) {
	var out []domain.SavedRepository
	for _, r := range f.records {
		if r.OwnerID != ownerID {
			continue
		}
		if filter.Status == "" && r.Status == domain.RepoStatusDeleted {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Language != "" && (r.Language == nil || *r.Language != filter.Language) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeSavedRepoStore) FindByFullName(_ context.Context, ownerID int64, fullName string) (*domain.SavedRepository, error) {
	r, ok := f.records[f.key(ownerID, fullName)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	result := r
	return &result, nil
}

func (f *fakeSavedRepoStore) UpdateStatus(_ context.Context, ownerID, id int64, status domain.RepoStatus) error {
	for k, r := range f.records {
		if r.OwnerID == ownerID && r.ID == id {
			r.Status = status
			f.records[k] = r
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeSavedRepoStore) UpdateMetadata(_ context.Context, ownerID, id int64, meta domain.RepoMetadata) error {
	for k, r := range f.records {
		if r.OwnerID == ownerID && r.ID == id {
			r.Category = meta.Category
			r.Priority = meta.Priority
			r.Notes = meta.Notes
			f.records[k] = r
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeSavedRepoStore) Delete(_ context.Context, ownerID, id int64) error {
	for k, r := range f.records {
		if r.OwnerID == ownerID && r.ID == id {
			delete(f.records, k)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeSavedRepoStore) Stats(_ context.Context, ownerID int64) (*domain.SavedRepoStats, error) {
	stats := &domain.SavedRepoStats{ByStatus: map[string]int{}, ByLanguage: map[string]int{}}
	for _, r := range f.records {
		if r.OwnerID != ownerID {
			continue
		}
		stats.Total++
		stats.ByStatus[string(r.Status)]++
		if r.Language != nil {
			stats.ByLanguage[*r.Language]++
		}
	}
	return stats, nil
}

type fakeConnectionSource struct {
	state domain.ConnectionState
}

func (f *fakeConnectionSource) Snapshot(int64) domain.ConnectionState { return f.state }

func connectedWith(repos ...domain.GitHubRepository) *fakeConnectionSource {
	return &fakeConnectionSource{state: domain.ConnectionState{
		IsConnected:  true,
		Repositories: repos,
	}}
}

func TestSavedRepoService_SaveFromSnapshot(t *testing.T) {
	goLang := "Go"
	source := connectedWith(domain.GitHubRepository{
		ID: 7, Name: "widgets", FullName: "alice/widgets", Language: &goLang, Stars: 12,
	})
	svc := NewSavedRepoService(newFakeSavedRepoStore(), source)

	saved, err := svc.Save(context.Background(), 1, "alice/widgets")
	require.NoError(t, err)
	assert.Equal(t, int64(7), saved.GitHubID)
	assert.Equal(t, "alice/widgets", saved.FullName)
	assert.Equal(t, domain.RepoStatusActive, saved.Status)
	assert.Equal(t, 12, saved.Stars)
}

func TestSavedRepoService_SaveRequiresConnection(t *testing.T) {
	svc := NewSavedRepoService(newFakeSavedRepoStore(), &fakeConnectionSource{})

	_, err := svc.Save(context.Background(), 1, "alice/widgets")
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestSavedRepoService_SaveUnknownNameRejected(t *testing.T) {
	source := connectedWith(domain.GitHubRepository{ID: 7, FullName: "alice/widgets"})
	svc := NewSavedRepoService(newFakeSavedRepoStore(), source)

	_, err := svc.Save(context.Background(), 1, "alice/other")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSavedRepoService_SaveTwiceKeepsOverlay(t *testing.T) {
	source := connectedWith(domain.GitHubRepository{ID: 7, FullName: "alice/widgets", Stars: 1})
	store := newFakeSavedRepoStore()
	svc := NewSavedRepoService(store, source)
	ctx := context.Background()

	first, err := svc.Save(ctx, 1, "alice/widgets")
	require.NoError(t, err)

	category := "tools"
	require.NoError(t, svc.UpdateMetadata(ctx, 1, first.ID, domain.RepoMetadata{Category: &category}))

	// Re-saving refreshes the snapshot fields but not the overlay.
	source.state.Repositories[0].Stars = 99
	second, err := svc.Save(ctx, 1, "alice/widgets")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 99, second.Stars)
	require.NotNil(t, second.Category)
	assert.Equal(t, "tools", *second.Category)
}

func TestSavedRepoService_SaveBatchSkipsMissing(t *testing.T) {
	source := connectedWith(
		domain.GitHubRepository{ID: 1, FullName: "alice/a"},
		domain.GitHubRepository{ID: 2, FullName: "alice/b"},
	)
	svc := NewSavedRepoService(newFakeSavedRepoStore(), source)

	saved, err := svc.SaveBatch(context.Background(), 1, []string{"alice/a", "alice/missing", "alice/b"})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "alice/a", saved[0].FullName)
	assert.Equal(t, "alice/b", saved[1].FullName)
}

func TestSavedRepoService_SaveBatchRequiresConnection(t *testing.T) {
	svc := NewSavedRepoService(newFakeSavedRepoStore(), &fakeConnectionSource{})

	_, err := svc.SaveBatch(context.Background(), 1, []string{"alice/a"})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestSavedRepoService_UpdateStatusValidatesEnum(t *testing.T) {
	source := connectedWith(domain.GitHubRepository{ID: 1, FullName: "alice/a"})
	svc := NewSavedRepoService(newFakeSavedRepoStore(), source)
	ctx := context.Background()

	saved, err := svc.Save(ctx, 1, "alice/a")
	require.NoError(t, err)

	err = svc.UpdateStatus(ctx, 1, saved.ID, "banana")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, svc.UpdateStatus(ctx, 1, saved.ID, domain.RepoStatusArchived))
	got, err := svc.Get(ctx, 1, "alice/a")
	require.NoError(t, err)
	assert.Equal(t, domain.RepoStatusArchived, got.Status)
}

func TestSavedRepoService_ListExcludesDeletedByDefault(t *testing.T) {
	source := connectedWith(
		domain.GitHubRepository{ID: 1, FullName: "alice/a"},
		domain.GitHubRepository{ID: 2, FullName: "alice/b"},
	)
	svc := NewSavedRepoService(newFakeSavedRepoStore(), source)
	ctx := context.Background()

	a, err := svc.Save(ctx, 1, "alice/a")
	require.NoError(t, err)
	_, err = svc.Save(ctx, 1, "alice/b")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, 1, a.ID, domain.RepoStatusDeleted))

	listed, err := svc.List(ctx, 1, domain.RepoFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "alice/b", listed[0].FullName)

	deleted, err := svc.List(ctx, 1, domain.RepoFilter{Status: domain.RepoStatusDeleted})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "alice/a", deleted[0].FullName)
}

func TestSavedRepoService_DeleteRemovesRecord(t *testing.T) {
	source := connectedWith(domain.GitHubRepository{ID: 1, FullName: "alice/a"})
	svc := NewSavedRepoService(newFakeSavedRepoStore(), source)
	ctx := context.Background()

	saved, err := svc.Save(ctx, 1, "alice/a")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, saved.ID))
	_, err = svc.Get(ctx, 1, "alice/a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, 1, saved.ID), domain.ErrNotFound)
}

func TestSavedRepoService_Stats(t *testing.T) {
	goLang := "Go"
	source := connectedWith(
		domain.GitHubRepository{ID: 1, FullName: "alice/a", Language: &goLang},
		domain.GitHubRepository{ID: 2, FullName: "alice/b", Language: &goLang},
		domain.GitHubRepository{ID: 3, FullName: "alice/c"},
	)
	svc := NewSavedRepoService(newFakeSavedRepoStore(), source)
	ctx := context.Background()

	for _, name := range []string{"alice/a", "alice/b", "alice/c"} {
		_, err := svc.Save(ctx, 1, name)
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.ByStatus["active"])
	assert.Equal(t, 2, stats.ByLanguage["Go"])
}

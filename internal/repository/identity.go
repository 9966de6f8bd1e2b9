package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/repoboard/internal/domain"
)

// IdentityRepository persists the linked GitHub identity for local accounts.
// One row per owner; the unique constraint is on owner_id.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Upsert creates or replaces the linked identity for the owning account.
// Idempotent; last write wins on token, scope, and profile fields.
func (r *IdentityRepository) Upsert(ctx context.Context, identity domain.LinkedIdentity) (*domain.LinkedIdentity, error) {
	var result domain.LinkedIdentity
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO linked_identities
		     (owner_id, github_user_id, github_username, access_token, scope, avatar_url, name, email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (owner_id)
		 DO UPDATE SET github_user_id = EXCLUDED.github_user_id,
		               github_username = EXCLUDED.github_username,
		               access_token = EXCLUDED.access_token,
		               scope = EXCLUDED.scope,
		               avatar_url = EXCLUDED.avatar_url,
		               name = EXCLUDED.name,
		               email = EXCLUDED.email,
		               updated_at = NOW()
		 RETURNING id, owner_id, github_user_id, github_username, access_token, scope,
		           avatar_url, name, email, created_at, updated_at`,
		identity.OwnerID, identity.GitHubUserID, identity.GitHubUsername,
		identity.AccessToken, identity.Scope, identity.AvatarURL, identity.Name, identity.Email,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("upsert linked identity: %w", err)
	}
	return &result, nil
}

// FindByOwner retrieves the linked identity for a local account.
// A missing row is a normal outcome and returns ErrNotFound.
func (r *IdentityRepository) FindByOwner(ctx context.Context, ownerID int64) (*domain.LinkedIdentity, error) {
	var identity domain.LinkedIdentity
	err := r.db.GetContext(ctx, &identity,
		`SELECT id, owner_id, github_user_id, github_username, access_token, scope,
		        avatar_url, name, email, created_at, updated_at
		 FROM linked_identities WHERE owner_id = $1`, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find linked identity for owner %d: %w", ownerID, err)
	}
	return &identity, nil
}

// Delete removes the linked identity for a local account. Used on explicit
// disconnect and on eviction of a token that failed verification. Deleting a
// missing row is not an error.
func (r *IdentityRepository) Delete(ctx context.Context, ownerID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM linked_identities WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("delete linked identity for owner %d: %w", ownerID, err)
	}
	return nil
}

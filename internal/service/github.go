package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sumire/repoboard/internal/domain"
	"github.com/sumire/repoboard/internal/oauth"
)

// IdentityStore is the profile persistence gateway: the durable record
// linking a local account to a GitHub identity and its token.
type IdentityStore interface {
	Upsert(ctx context.Context, identity domain.LinkedIdentity) (*domain.LinkedIdentity, error)
	FindByOwner(ctx context.Context, ownerID int64) (*domain.LinkedIdentity, error)
	Delete(ctx context.Context, ownerID int64) error
}

// StateStore issues and consumes single-use CSRF state tokens.
type StateStore interface {
	Issue(ctx context.Context, ownerID int64) (string, error)
	Consume(ctx context.Context, ownerID int64, received string) (bool, error)
	Clear(ctx context.Context, ownerID int64) error
}

// Exchanger swaps an authorization code for an access token.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth.TokenResponse, error)
}

// ProviderClient is the authenticated GitHub API surface the orchestrator
// drives with a candidate token.
type ProviderClient interface {
	Verify(ctx context.Context) bool
	CurrentUser(ctx context.Context) (*domain.GitHubUser, error)
	ListRepositories(ctx context.Context) ([]domain.GitHubRepository, error)
	ListCommits(ctx context.Context, owner, repo string, page, perPage int) ([]domain.GitHubCommit, error)
	ListIssues(ctx context.Context, owner, repo, state string, page, perPage int) ([]domain.GitHubIssue, error)
	Readme(ctx context.Context, owner, repo string) (string, error)
	RateLimit(ctx context.Context) (*domain.GitHubRateLimit, error)
}

// ClientFactory builds a ProviderClient for an access token.
type ClientFactory func(ctx context.Context, token string) ProviderClient

// GitHubConfig holds the OAuth application settings. The client secret stays
// inside the Exchanger and never reaches this layer.
type GitHubConfig struct {
	ClientID    string
	RedirectURL string
	Scopes      string
}

// GitHubService orchestrates the GitHub connection lifecycle: the connect
// redirect, the callback handshake, reconciliation on load, disconnect, and
// repository refresh. Per-owner connection state is held in memory;
// concurrent writers converge by last-write-wins.
type GitHubService struct {
	identities IdentityStore
	states     StateStore
	exchanger  Exchanger
	clients    ClientFactory
	cfg        GitHubConfig

	mu    sync.RWMutex
	conns map[int64]domain.ConnectionState
}

// NewGitHubService creates a new GitHubService.
func NewGitHubService(identities IdentityStore, states StateStore, exchanger Exchanger, clients ClientFactory, cfg GitHubConfig) *GitHubService {
	return &GitHubService{
		identities: identities,
		states:     states,
		exchanger:  exchanger,
		clients:    clients,
		cfg:        cfg,
		conns:      make(map[int64]domain.ConnectionState),
	}
}

// Connect starts the authorization flow for a signed-in local account:
// issues a fresh CSRF state, overwriting any pending attempt, and returns
// the provider authorization URL to redirect the browser to.
func (s *GitHubService) Connect(ctx context.Context, ownerID int64) (string, error) {
	if s.cfg.ClientID == "" {
		return "", fmt.Errorf("github oauth is not configured")
	}

	state, err := s.states.Issue(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("issue oauth state: %w", err)
	}

	return oauth.AuthCodeURL(s.cfg.ClientID, s.cfg.RedirectURL, s.cfg.Scopes, state), nil
}

// HandleCallback runs the callback handshake: CSRF validation, code
// exchange, token verification, profile fetch, persistence. Steps are
// strictly sequential. Any failure leaves no partially-set token behind.
// A persistence failure after a successful handshake is logged and the
// session stays connected on the in-memory token.
func (s *GitHubService) HandleCallback(ctx context.Context, ownerID int64, code, state string) (*domain.GitHubUser, error) {
	ok, err := s.states.Consume(ctx, ownerID, state)
	if err != nil {
		s.clearState(ownerID)
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	if !ok {
		s.clearState(ownerID)
		return nil, domain.ErrStateMismatch
	}

	token, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		s.clearState(ownerID)
		return nil, err
	}

	client := s.clients(ctx, token.AccessToken)
	if !client.Verify(ctx) {
		s.clearState(ownerID)
		return nil, fmt.Errorf("access token failed verification")
	}

	profile, err := client.CurrentUser(ctx)
	if err != nil {
		s.clearState(ownerID)
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	if _, err := s.identities.Upsert(ctx, domain.LinkedIdentity{
		OwnerID:        ownerID,
		GitHubUserID:   profile.ID,
		GitHubUsername: profile.Login,
		AccessToken:    token.AccessToken,
		Scope:          token.Scope,
		AvatarURL:      &profile.AvatarURL,
		Name:           profile.Name,
		Email:          profile.Email,
	}); err != nil {
		// Non-fatal: a storage hiccup after a successful handshake must not
		// punish the user. The in-memory token carries this session.
		slog.Error("persist linked identity failed", "owner_id", ownerID, "error", err)
	}

	accessToken := token.AccessToken
	s.setState(ownerID, domain.ConnectionState{
		IsConnected: true,
		User:        profile,
		AccessToken: &accessToken,
	})
	return profile, nil
}

// Reconcile decides the current connection status from the durable record
// and the in-memory snapshot, hydrates profile and repositories when a valid
// token exists, and silently evicts a stored token that fails verification.
func (s *GitHubService) Reconcile(ctx context.Context, ownerID int64) domain.ConnectionState {
	token := ""
	identity, err := s.identities.FindByOwner(ctx, ownerID)
	switch {
	case err == nil:
		token = identity.AccessToken
	case errors.Is(err, domain.ErrNotFound):
		// Normal outcome; fall back to a token held only in memory, if any.
		if snap := s.Snapshot(ownerID); snap.AccessToken != nil {
			token = *snap.AccessToken
		}
	default:
		slog.Error("load linked identity failed", "owner_id", ownerID, "error", err)
		if snap := s.Snapshot(ownerID); snap.AccessToken != nil {
			token = *snap.AccessToken
		}
	}

	if token == "" {
		s.clearState(ownerID)
		return s.Snapshot(ownerID)
	}

	client := s.clients(ctx, token)
	if !client.Verify(ctx) {
		// Self-healing eviction: the stored credential is no longer valid.
		if identity != nil {
			if err := s.identities.Delete(ctx, ownerID); err != nil {
				slog.Error("evict stale linked identity failed", "owner_id", ownerID, "error", err)
			} else {
				slog.Info("evicted stale linked identity", "owner_id", ownerID)
			}
		}
		s.clearState(ownerID)
		return s.Snapshot(ownerID)
	}

	profile, err := client.CurrentUser(ctx)
	if err != nil {
		return s.failState(ownerID, "failed to load GitHub profile", err)
	}
	repos, err := client.ListRepositories(ctx)
	if err != nil {
		return s.failState(ownerID, "failed to load GitHub repositories", err)
	}

	s.setState(ownerID, domain.ConnectionState{
		IsConnected:  true,
		User:         profile,
		AccessToken:  &token,
		Repositories: repos,
	})
	return s.Snapshot(ownerID)
}

// RefreshRepositories re-fetches the repository list. On failure the
// previous cached list is left untouched: stale-but-available beats
// empty-on-error.
func (s *GitHubService) RefreshRepositories(ctx context.Context, ownerID int64) (domain.ConnectionState, error) {
	snap := s.Snapshot(ownerID)
	if !snap.IsConnected || snap.AccessToken == nil {
		return snap, domain.ErrNotConnected
	}

	repos, err := s.clients(ctx, *snap.AccessToken).ListRepositories(ctx)
	if err != nil {
		return snap, fmt.Errorf("refresh repositories: %w", err)
	}

	s.mu.Lock()
	state := s.conns[ownerID]
	state.Repositories = repos
	state.Error = nil
	s.conns[ownerID] = state
	s.mu.Unlock()

	return s.Snapshot(ownerID), nil
}

// Disconnect clears the durable record and the pending CSRF slot, both
// best-effort, then resets the in-memory state. Local-first: the session
// always ends disconnected even when storage misbehaves.
func (s *GitHubService) Disconnect(ctx context.Context, ownerID int64) {
	if err := s.identities.Delete(ctx, ownerID); err != nil {
		slog.Error("delete linked identity failed", "owner_id", ownerID, "error", err)
	}
	if err := s.states.Clear(ctx, ownerID); err != nil {
		slog.Error("clear oauth state failed", "owner_id", ownerID, "error", err)
	}
	s.clearState(ownerID)
}

// ExchangeCode is the trusted-intermediary exchange surface. The browser
// never sees the client secret; it posts the code here instead.
func (s *GitHubService) ExchangeCode(ctx context.Context, code string) (*oauth.TokenResponse, error) {
	return s.exchanger.Exchange(ctx, code)
}

// SaveProfile is the trusted-intermediary persistence surface: a durable
// upsert performed with privileges the browser does not hold.
func (s *GitHubService) SaveProfile(ctx context.Context, identity domain.LinkedIdentity) (*domain.LinkedIdentity, error) {
	saved, err := s.identities.Upsert(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return saved, nil
}

// Snapshot returns a copy of the owner's current connection state, the
// default disconnected shape if none exists.
func (s *GitHubService) Snapshot(ownerID int64) domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conns[ownerID]
}

// ListCommits returns a page of commit history for a repository.
func (s *GitHubService) ListCommits(ctx context.Context, ownerID int64, owner, repo string, page, perPage int) ([]domain.GitHubCommit, error) {
	client, err := s.clientFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return client.ListCommits(ctx, owner, repo, page, perPage)
}

// ListIssues returns a page of issues for a repository.
func (s *GitHubService) ListIssues(ctx context.Context, ownerID int64, owner, repo, state string, page, perPage int) ([]domain.GitHubIssue, error) {
	client, err := s.clientFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return client.ListIssues(ctx, owner, repo, state, page, perPage)
}

// Readme returns a repository's README markdown.
func (s *GitHubService) Readme(ctx context.Context, ownerID int64, owner, repo string) (string, error) {
	client, err := s.clientFor(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return client.Readme(ctx, owner, repo)
}

// RateLimit reports the remaining API quota for the linked token.
func (s *GitHubService) RateLimit(ctx context.Context, ownerID int64) (*domain.GitHubRateLimit, error) {
	client, err := s.clientFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return client.RateLimit(ctx)
}

// Stats aggregates totals over the cached repository snapshot.
func (s *GitHubService) Stats(ctx context.Context, ownerID int64) (*domain.GitHubStats, error) {
	snap := s.Snapshot(ownerID)
	if !snap.IsConnected {
		return nil, domain.ErrNotConnected
	}

	repos := snap.Repositories
	if len(repos) == 0 {
		var err error
		if repos, err = s.clients(ctx, *snap.AccessToken).ListRepositories(ctx); err != nil {
			return nil, fmt.Errorf("load repositories for stats: %w", err)
		}
	}

	stats := &domain.GitHubStats{
		TotalRepos: len(repos),
		Languages:  map[string]int{},
	}
	for _, r := range repos {
		stats.TotalStars += r.Stars
		stats.TotalForks += r.Forks
		if r.Language != nil {
			stats.Languages[*r.Language]++
		}
	}
	return stats, nil
}

func (s *GitHubService) clientFor(ctx context.Context, ownerID int64) (ProviderClient, error) {
	if snap := s.Snapshot(ownerID); snap.IsConnected && snap.AccessToken != nil {
		return s.clients(ctx, *snap.AccessToken), nil
	}

	identity, err := s.identities.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotConnected
		}
		return nil, fmt.Errorf("load linked identity: %w", err)
	}
	return s.clients(ctx, identity.AccessToken), nil
}

func (s *GitHubService) setState(ownerID int64, state domain.ConnectionState) {
	s.mu.Lock()
	s.conns[ownerID] = state
	s.mu.Unlock()
}

func (s *GitHubService) clearState(ownerID int64) {
	s.setState(ownerID, domain.ConnectionState{})
}

func (s *GitHubService) failState(ownerID int64, msg string, err error) domain.ConnectionState {
	slog.Error(msg, "owner_id", ownerID, "error", err)
	s.setState(ownerID, domain.ConnectionState{Error: &msg})
	return s.Snapshot(ownerID)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/repoboard/internal/domain"
)

type fakeUserStore struct {
	byEmail map[string]domain.User
	nextID  int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: map[string]domain.User{}}
}

func (f *fakeUserStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	user := u
	return &user, nil
}

func (f *fakeUserStore) Create(_ context.Context, user domain.User) (*domain.User, error) {
	if _, ok := f.byEmail[user.Email]; ok {
		return nil, domain.ErrConflict
	}
	f.nextID++
	user.ID = f.nextID
	f.byEmail[user.Email] = user
	result := user
	return &result, nil
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserStore(), "test-secret")
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "alice@example.com", "hunter22", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.PasswordHash, "password must be hashed")
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	loggedIn, loginPair, err := svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, loginPair.AccessToken)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	svc := NewAuthService(newFakeUserStore(), "test-secret")
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice@example.com", "hunter22", "Alice")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_LoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserStore(), "test-secret")

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserStore(), "test-secret")
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice@example.com", "hunter22", "Alice")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "alice@example.com", "other", "Alice Again")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc := NewAuthService(newFakeUserStore(), "test-secret")

	user, pair, err := svc.Register(context.Background(), "alice@example.com", "hunter22", "Alice")
	require.NoError(t, err)

	userID, err := svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestAuthService_TokenTypeEnforced(t *testing.T) {
	svc := NewAuthService(newFakeUserStore(), "test-secret")

	_, pair, err := svc.Register(context.Background(), "alice@example.com", "hunter22", "Alice")
	require.NoError(t, err)

	// A refresh token is not an access token, and vice versa.
	_, err = svc.ValidateToken(pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.RefreshAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_RefreshAccessToken(t *testing.T) {
	svc := NewAuthService(newFakeUserStore(), "test-secret")

	user, pair, err := svc.Register(context.Background(), "alice@example.com", "hunter22", "Alice")
	require.NoError(t, err)

	fresh, err := svc.RefreshAccessToken(pair.RefreshToken)
	require.NoError(t, err)

	userID, err := svc.ValidateToken(fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestAuthService_WrongSecretRejected(t *testing.T) {
	issuer := NewAuthService(newFakeUserStore(), "secret-a")
	verifier := NewAuthService(newFakeUserStore(), "secret-b")

	_, pair, err := issuer.Register(context.Background(), "alice@example.com", "hunter22", "Alice")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestAuthService_LinkTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(newFakeUserStore(), "test-secret")

	link, err := svc.LinkToken(7)
	require.NoError(t, err)

	userID, err := svc.ValidateLinkToken(link)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)

	// A link token must not pass as a session token.
	_, err = svc.ValidateToken(link)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclone/internal/memstore"
)

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New(nil)
	return NewService(store, "test-secret", time.Hour, []string{"Boss"}, nil), store
}

func TestRegisterThenResolve(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	tokens := &MemoryTokenStore{}

	profile, err := svc.Register(ctx, tokens, "  regular-user ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "regular-user", profile.Username)
	assert.False(t, profile.IsAdmin)

	res := svc.Resolve(ctx, tokens)
	require.True(t, res.Authenticated)
	assert.Equal(t, profile.ID, res.Profile.ID)
}

func TestSignUpGrantsConfiguredAdmins(t *testing.T) {
	svc, _ := newTestService(t)

	profile, _, err := svc.SignUp(context.Background(), "boss", "secret1")
	require.NoError(t, err)
	assert.True(t, profile.IsAdmin)
}

func TestSignUpErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, _, err := svc.SignUp(ctx, "alice", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)
	_, _, err = svc.SignUp(ctx, "  ", "secret1")
	assert.ErrorIs(t, err, ErrMissingUsername)

	_, _, err = svc.SignUp(ctx, "alice", "secret1")
	require.NoError(t, err)
	_, _, err = svc.SignUp(ctx, "ALICE", "secret1")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	tokens := &MemoryTokenStore{}
	_, _, err := svc.SignUp(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, tokens, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, tokens, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, stored := tokens.Load()
	assert.False(t, stored)

	profile, err := svc.Login(ctx, tokens, "Alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	_, stored = tokens.Load()
	assert.True(t, stored)
}

func TestResolveClearsInvalidToken(t *testing.T) {
	svc, _ := newTestService(t)
	tokens := &MemoryTokenStore{}
	tokens.Save("not-a-jwt")

	res := svc.Resolve(context.Background(), tokens)
	assert.False(t, res.Authenticated)
	_, stored := tokens.Load()
	assert.False(t, stored)
}

func TestResolveClearsTokenForMissingProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	other, _ := newTestService(t)
	_, token, err := other.SignUp(ctx, "ghost", "secret1")
	require.NoError(t, err)

	tokens := &MemoryTokenStore{}
	tokens.Save(token)
	res := svc.Resolve(ctx, tokens)
	assert.False(t, res.Authenticated)
	_, stored := tokens.Load()
	assert.False(t, stored)
}

func TestResolveWithoutTokenIsUnauthenticated(t *testing.T) {
	svc, _ := newTestService(t)
	assert.False(t, svc.Resolve(context.Background(), &MemoryTokenStore{}).Authenticated)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, token, err := svc.SignUp(ctx, "alice", "secret1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutClearsStore(t *testing.T) {
	svc, _ := newTestService(t)
	tokens := &MemoryTokenStore{}
	tokens.Save("token")

	svc.Logout(tokens)
	_, stored := tokens.Load()
	assert.False(t, stored)
}

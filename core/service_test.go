package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, repo *memUserRepo, username, email, password string, superuser bool) int64 {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	id, err := repo.Create(context.Background(), username, email, hash, superuser)
	require.NoError(t, err)
	return id
}

func TestAuthenticate_Success(t *testing.T) {
	t.Parallel()

	repo := newMemUserRepo()
	id := seedUser(t, repo, "alice", "alice@example.com", "correct-pw", false)
	svc := NewRepositoryAuthService(repo)

	u, err := svc.Authenticate(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.IsSuperuser)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	t.Parallel()

	repo := newMemUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "correct-pw", false)
	svc := NewRepositoryAuthService(repo)

	_, err := svc.Authenticate(context.Background(), "alice", "wrong-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	t.Parallel()

	repo := newMemUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "correct-pw", false)
	svc := NewRepositoryAuthService(repo)

	// Missing user and wrong password must be indistinguishable.
	_, err := svc.Authenticate(context.Background(), "ghost", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	svc := NewRepositoryAuthService(&failingUserRepo{err: storeErr})

	// A store outage must surface as a fault, never as a credential verdict.
	_, err := svc.Authenticate(context.Background(), "alice", "correct-pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, storeErr)
}

func TestAuthenticate_EmptyInput(t *testing.T) {
	t.Parallel()

	svc := NewRepositoryAuthService(newMemUserRepo())

	_, err := svc.Authenticate(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(context.Background(), "alice", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapSuperuser_CreatesOnce(t *testing.T) {
	repo := newMemUserRepo()
	pwPath := filepath.Join(t.TempDir(), "initial_admin_password.secret")
	cfg := Config{BootstrapAdminEnabled: true, InitialAdminPasswordPath: pwPath}
	ctx := context.Background()

	require.NoError(t, BootstrapSuperuser(ctx, repo, cfg))

	record, err := repo.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, record.IsSuperuser)

	data, err := os.ReadFile(pwPath)
	require.NoError(t, err)
	password := strings.TrimSpace(string(data))
	require.NotEmpty(t, password)
	assert.True(t, VerifyPassword(password, record.PasswordHash))

	// Idempotent: a second run must not create another superuser.
	require.NoError(t, BootstrapSuperuser(ctx, repo, cfg))
	_, total, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestBootstrapSuperuser_Disabled(t *testing.T) {
	repo := newMemUserRepo()
	cfg := Config{BootstrapAdminEnabled: false}
	ctx := context.Background()

	require.NoError(t, BootstrapSuperuser(ctx, repo, cfg))
	has, err := repo.HasSuperuser(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBootstrapSuperuser_SkipsWhenSuperuserExists(t *testing.T) {
	repo := newMemUserRepo()
	seedUser(t, repo, "root", "root@example.com", "pw", true)
	cfg := Config{BootstrapAdminEnabled: true}
	ctx := context.Background()

	require.NoError(t, BootstrapSuperuser(ctx, repo, cfg))
	_, err := repo.FindByUsername(ctx, "admin")
	require.Error(t, err)
}

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	p1, err := generatePassword(32)
	require.NoError(t, err)
	assert.Len(t, p1, 32)

	p2, err := generatePassword(32)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)

	_, err = generatePassword(0)
	require.Error(t, err)
}

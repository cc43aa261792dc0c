package auth

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurecoin/futurecoin/internal/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.Schema())
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(db, log)
	return NewService(repo, "admin", "adminpass", log)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	testCases := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "secret1"},
		{"short password", "alice", "12345"},
		{"empty username", "", "secret1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Register(ctx, tc.username, tc.password)

			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestRegister_AndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "secret1"))

	isAdmin, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "secret1"))

	err := svc.Register(ctx, "alice", "other-password")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_AdminNameReserved(t *testing.T) {
	svc := newTestService(t)

	err := svc.Register(context.Background(), "admin", "secret1")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLogin_Admin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	isAdmin, err := svc.Login(ctx, "admin", "adminpass")
	require.NoError(t, err)
	assert.True(t, isAdmin)

	_, err = svc.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "secret1"))

	testCases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "wrong"},
		{"unknown user", "carol", "secret1"},
		{"empty password", "alice", ""},
		{"empty username", "", "secret1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tc.username, tc.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestRepository_PasswordStoredHashed(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(database.Schema())
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(db, log)
	svc := NewService(repo, "admin", "adminpass", log)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "secret1"))

	user, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestRecordLogin(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(database.Schema())
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(db, log)

	require.NoError(t, repo.RecordLogin(context.Background(), "alice", "1.2.3.4", "curl/8.0"))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM logins WHERE username = 'alice'").Scan(&count))
	assert.Equal(t, 1, count)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/bonus-agreements/internal/model"
	"github.com/nurpe/bonus-agreements/internal/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE console_sessions (
		id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		user_id TEXT,
		username TEXT NOT NULL,
		email TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		is_admin BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		verified_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`).Error)
	return db
}

func newSession(now time.Time, ttl time.Duration) *model.Session {
	return &model.Session{
		ID:          uuid.New(),
		AccessToken: "token",
		User:        model.User{ID: uuid.New(), Username: "admin", Email: "admin@example.com", IsActive: true, IsAdmin: true},
		CreatedAt:   now,
		VerifiedAt:  now,
		ExpiresAt:   now.Add(ttl),
	}
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	s := newSession(now, time.Hour)
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.AccessToken, got.AccessToken)
	assert.Equal(t, s.User.Username, got.User.Username)
	assert.True(t, got.User.IsAdmin)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
}

func TestSessionRepositorySaveUpserts(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	s := newSession(now, time.Hour)
	require.NoError(t, repo.Save(ctx, s))

	s.VerifiedAt = now.Add(10 * time.Minute)
	s.User.Username = "renamed"
	require.NoError(t, repo.Save(ctx, s))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "renamed", all[0].User.Username)
	assert.True(t, s.VerifiedAt.Equal(all[0].VerifiedAt))
}

func TestSessionRepositoryDelete(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	s := newSession(time.Now().UTC(), time.Hour)
	require.NoError(t, repo.Save(ctx, s))
	require.NoError(t, repo.Delete(ctx, s.ID))

	_, err := repo.Get(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSessionRepositoryDeleteExpired(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Save(ctx, newSession(now, -time.Minute)))
	live := newSession(now, time.Hour)
	require.NoError(t, repo.Save(ctx, live))

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, live.ID, all[0].ID)
}

var _ session.Store = (*SessionRepository)(nil)

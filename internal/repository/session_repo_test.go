//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"adoptify-web/internal/database"
	"adoptify-web/internal/session"
	"adoptify-web/internal/session/sessiontest"
)

func newTestRepository(t *testing.T) *SessionRepository {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	return NewSessionRepository(db.Pool)
}

func TestSessionRepositoryContract(t *testing.T) {
	repo := newTestRepository(t)

	sessiontest.RunContract(t, func(t *testing.T) session.Store {
		return repo.Store(uuid.NewString())
	})
}

func TestSessionRepositorySweep(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	store := repo.Store(uuid.NewString())
	require.NoError(t, store.Save(ctx, session.Session{AccessToken: "a", RefreshToken: "r"}))

	removed, err := repo.Sweep(ctx, -time.Minute)
	require.NoError(t, err)
	require.GreaterOrEqual(t, removed, int64(1))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, sess.IsZero())
}

func TestSessionRepositoryLoadKeepsSessionAlive(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	store := repo.Store(uuid.NewString())
	require.NoError(t, store.Save(ctx, session.Session{AccessToken: "a", RefreshToken: "r"}))

	time.Sleep(100 * time.Millisecond)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	_, err = repo.Sweep(ctx, 50*time.Millisecond)
	require.NoError(t, err)

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "r", sess.RefreshToken)
}

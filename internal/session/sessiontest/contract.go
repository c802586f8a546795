// Package sessiontest runs the behaviour every session.Store must share.
package sessiontest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"adoptify-web/internal/session"
)

var populated = session.Session{
	AccessToken:  "access-1",
	RefreshToken: "refresh-1",
	Role:         session.RoleAdmin,
	Username:     "alice",
}

// RunContract exercises a Store built by newStore. Each subtest gets a fresh
// store.
func RunContract(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("starts empty", func(t *testing.T) {
		store := newStore(t)

		sess, err := store.Load(ctx)
		require.NoError(t, err)
		require.True(t, sess.IsZero())
	})

	t.Run("save then load round trips all keys", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.Save(ctx, populated))
		sess, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, populated, sess)

		for key, want := range populated.Values() {
			got, err := store.Get(ctx, key)
			require.NoError(t, err)
			require.Equal(t, want, got, "key %s", key)
		}
	})

	t.Run("set replaces one key only", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, populated))

		require.NoError(t, store.Set(ctx, session.KeyAccess, "access-2"))

		sess, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "access-2", sess.AccessToken)
		require.Equal(t, populated.RefreshToken, sess.RefreshToken)
		require.Equal(t, populated.Role, sess.Role)
		require.Equal(t, populated.Username, sess.Username)
	})

	t.Run("set empty removes key", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, populated))

		require.NoError(t, store.Set(ctx, session.KeyAccess, ""))

		got, err := store.Get(ctx, session.KeyAccess)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Get(ctx, session.Key("token"))
		require.ErrorIs(t, err, session.ErrUnknownKey)
		require.ErrorIs(t, store.Set(ctx, session.Key("token"), "x"), session.ErrUnknownKey)
	})

	t.Run("save drops keys missing from the new session", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, populated))

		require.NoError(t, store.Save(ctx, session.Session{AccessToken: "only"}))

		sess, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, session.Session{AccessToken: "only"}, sess)
	})

	t.Run("clear removes all keys and is idempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, populated))

		require.NoError(t, store.Clear(ctx))
		once, err := store.Load(ctx)
		require.NoError(t, err)

		require.NoError(t, store.Clear(ctx))
		twice, err := store.Load(ctx)
		require.NoError(t, err)

		require.True(t, once.IsZero())
		require.Equal(t, once, twice)
		for _, key := range session.Keys {
			got, err := store.Get(ctx, key)
			require.NoError(t, err)
			require.Empty(t, got, "key %s", key)
		}
	})

	t.Run("set access if refresh matches", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, populated))

		applied, err := store.SetAccessIf(ctx, populated.RefreshToken, "access-2")
		require.NoError(t, err)
		require.True(t, applied)

		sess, err := store.Load(ctx)
		require.NoError(t, err)
		want := populated
		want.AccessToken = "access-2"
		require.Equal(t, want, sess)
	})

	t.Run("set access if never revives a cleared session", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, populated))
		require.NoError(t, store.Clear(ctx))

		applied, err := store.SetAccessIf(ctx, populated.RefreshToken, "late")
		require.NoError(t, err)
		require.False(t, applied)

		sess, err := store.Load(ctx)
		require.NoError(t, err)
		require.True(t, sess.IsZero())
	})

	t.Run("set access if leaves a newer login alone", func(t *testing.T) {
		store := newStore(t)
		newer := session.Session{AccessToken: "access-b", RefreshToken: "refresh-b", Role: session.RoleUser, Username: "bob"}
		require.NoError(t, store.Save(ctx, newer))

		applied, err := store.SetAccessIf(ctx, populated.RefreshToken, "late")
		require.NoError(t, err)
		require.False(t, applied)

		applied, err = store.SetAccessIf(ctx, "", "late")
		require.NoError(t, err)
		require.False(t, applied, "an empty refresh token never matches")

		sess, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, newer, sess)
	})

	t.Run("clear if refresh matches", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, populated))

		cleared, err := store.ClearIf(ctx, "refresh-other")
		require.NoError(t, err)
		require.False(t, cleared)
		sess, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, populated, sess)

		cleared, err = store.ClearIf(ctx, populated.RefreshToken)
		require.NoError(t, err)
		require.True(t, cleared)
		sess, err = store.Load(ctx)
		require.NoError(t, err)
		require.True(t, sess.IsZero())

		cleared, err = store.ClearIf(ctx, populated.RefreshToken)
		require.NoError(t, err)
		require.False(t, cleared)
	})

	t.Run("clear if empty refresh removes leftovers", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, session.Session{Role: session.RoleUser, Username: "bob"}))

		cleared, err := store.ClearIf(ctx, "")
		require.NoError(t, err)
		require.True(t, cleared)

		sess, err := store.Load(ctx)
		require.NoError(t, err)
		require.True(t, sess.IsZero())
	})

	t.Run("concurrent readers never see a partial session", func(t *testing.T) {
		store := newStore(t)
		other := session.Session{AccessToken: "access-b", RefreshToken: "refresh-b", Role: session.RoleUser, Username: "bob"}

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 25; j++ {
					switch (i + j) % 3 {
					case 0:
						_ = store.Save(ctx, populated)
					case 1:
						_ = store.Save(ctx, other)
					default:
						_ = store.Clear(ctx)
					}
				}
			}(i)
		}

		for i := 0; i < 100; i++ {
			sess, err := store.Load(ctx)
			require.NoError(t, err)
			if !sess.IsZero() && sess != populated && sess != other {
				t.Fatalf("observed partial session %+v", sess)
			}
		}
		wg.Wait()
	})
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adoptify-web/internal/session"
)

// SessionRepository keeps one client_sessions row per browser session. Every
// mutation is a single statement, so readers see either the old or the new
// row. Rows exist only once something is written; updated_at is the idle
// clock, advanced by Load and every write.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Store(id string) session.Store {
	return &sessionStore{pool: r.pool, id: id}
}

func (r *SessionRepository) Sweep(ctx context.Context, idleFor time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM client_sessions WHERE updated_at <= $1`,
		time.Now().UTC().Add(-idleFor))
	if err != nil {
		return 0, fmt.Errorf("sweep idle sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

type sessionStore struct {
	pool *pgxpool.Pool
	id   string
}

func column(key session.Key) (string, error) {
	switch key {
	case session.KeyAccess:
		return "access", nil
	case session.KeyRefresh:
		return "refresh", nil
	case session.KeyRole:
		return "role", nil
	case session.KeyUsername:
		return "username", nil
	default:
		return "", session.ErrUnknownKey
	}
}

func (s *sessionStore) Get(ctx context.Context, key session.Key) (string, error) {
	col, err := column(key)
	if err != nil {
		return "", err
	}

	var value string
	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(`+col+`, '') FROM client_sessions WHERE id = $1`, s.id).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session %s: %w", key, err)
	}
	return value, nil
}

func (s *sessionStore) Set(ctx context.Context, key session.Key, value string) error {
	col, err := column(key)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO client_sessions (id, `+col+`, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), $3, $3)
		 ON CONFLICT (id) DO UPDATE SET `+col+` = EXCLUDED.`+col+`, updated_at = EXCLUDED.updated_at`,
		s.id, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set session %s: %w", key, err)
	}
	return nil
}

// Load also stamps updated_at, so a session that is only being read is not
// swept as idle.
func (s *sessionStore) Load(ctx context.Context) (session.Session, error) {
	var access, refresh, role, username string
	err := s.pool.QueryRow(ctx,
		`UPDATE client_sessions SET updated_at = $2 WHERE id = $1
		 RETURNING COALESCE(access, ''), COALESCE(refresh, ''), COALESCE(role, ''), COALESCE(username, '')`,
		s.id, time.Now().UTC()).
		Scan(&access, &refresh, &role, &username)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Session{}, nil
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}

	return session.FromValues(map[session.Key]string{
		session.KeyAccess:   access,
		session.KeyRefresh:  refresh,
		session.KeyRole:     role,
		session.KeyUsername: username,
	}), nil
}

func (s *sessionStore) Save(ctx context.Context, sess session.Session) error {
	values := sess.Values()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO client_sessions (id, access, refresh, role, username, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     access = EXCLUDED.access,
		     refresh = EXCLUDED.refresh,
		     role = EXCLUDED.role,
		     username = EXCLUDED.username,
		     updated_at = EXCLUDED.updated_at`,
		s.id, values[session.KeyAccess], values[session.KeyRefresh], values[session.KeyRole], values[session.KeyUsername], now)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *sessionStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM client_sessions WHERE id = $1`, s.id)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SetAccessIf is an UPDATE, never an upsert: a cleared session has no row to
// write into.
func (s *sessionStore) SetAccessIf(ctx context.Context, refresh string, access string) (bool, error) {
	if refresh == "" {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE client_sessions SET access = NULLIF($3, ''), updated_at = $4
		 WHERE id = $1 AND refresh = $2`,
		s.id, refresh, access, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set session access: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *sessionStore) ClearIf(ctx context.Context, refresh string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM client_sessions WHERE id = $1 AND COALESCE(refresh, '') = $2`,
		s.id, refresh)
	if err != nil {
		return false, fmt.Errorf("clear session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

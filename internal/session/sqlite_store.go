package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists a single client session in a local SQLite file. It is
// the terminal counterpart of a browser's local storage.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the session database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS session_kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create session table: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM session_kv WHERE key = ?`, legacyTokenKey); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("drop legacy token key: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) (string, error) {
	if !key.valid() {
		return "", ErrUnknownKey
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_kv WHERE key = ?`, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key Key, value string) error {
	if !key.valid() {
		return ErrUnknownKey
	}

	if value == "" {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM session_kv WHERE key = ?`, string(key)); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		string(key), value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_kv`)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	defer rows.Close()

	values := map[Key]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Session{}, fmt.Errorf("scan session key: %w", err)
		}
		values[Key(key)] = value
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	return FromValues(values), nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_kv`); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}
		for key, value := range sess.Values() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO session_kv (key, value) VALUES (?, ?)`, string(key), value); err != nil {
				return fmt.Errorf("save %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_kv`); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) SetAccessIf(ctx context.Context, refresh string, access string) (bool, error) {
	if refresh == "" {
		return false, nil
	}

	var applied bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := refreshIn(ctx, tx)
		if err != nil || current != refresh {
			return err
		}

		if access == "" {
			_, err = tx.ExecContext(ctx, `DELETE FROM session_kv WHERE key = ?`, string(KeyAccess))
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO session_kv (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				string(KeyAccess), access)
		}
		if err != nil {
			return fmt.Errorf("set access: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}

func (s *SQLiteStore) ClearIf(ctx context.Context, refresh string) (bool, error) {
	var cleared bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := refreshIn(ctx, tx)
		if err != nil || current != refresh {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM session_kv`)
		if err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		cleared = n > 0
		return nil
	})
	return cleared, err
}

func refreshIn(ctx context.Context, tx *sql.Tx) (string, error) {
	var value string
	err := tx.QueryRowContext(ctx, `SELECT value FROM session_kv WHERE key = ?`, string(KeyRefresh)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session tx: %w", err)
	}
	return nil
}

package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect selects placeholder syntax for the SQL store.
type Dialect string

const (
	// DialectSQLite targets modernc.org/sqlite (driver name "sqlite").
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres targets github.com/lib/pq (driver name "postgres").
	DialectPostgres Dialect = "postgres"
)

// DriverName returns the database/sql driver name registered for d.
func (d Dialect) DriverName() string {
	return string(d)
}

const createTokensTable = `
CREATE TABLE IF NOT EXISTS session_tokens (
	name       TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

// SQL stores the token as one row of the session_tokens table. The caller
// owns the *sql.DB and imports the driver.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	key     string
	now     func() time.Time

	getQuery    string
	upsertQuery string
	deleteQuery string
}

// NewSQL returns a SQL-backed store for db. An empty key uses DefaultKey.
func NewSQL(db *sql.DB, dialect Dialect, key string) (*SQL, error) {
	if db == nil {
		return nil, errors.New("nil database handle")
	}
	s := &SQL{
		db:      db,
		dialect: dialect,
		key:     normalizeKey(key),
		now:     time.Now,
	}
	switch dialect {
	case DialectSQLite:
		s.getQuery = `SELECT token FROM session_tokens WHERE name = ?`
		s.upsertQuery = `INSERT INTO session_tokens (name, token, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`
		s.deleteQuery = `DELETE FROM session_tokens WHERE name = ?`
	case DialectPostgres:
		s.getQuery = `SELECT token FROM session_tokens WHERE name = $1`
		s.upsertQuery = `INSERT INTO session_tokens (name, token, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at`
		s.deleteQuery = `DELETE FROM session_tokens WHERE name = $1`
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	return s, nil
}

// EnsureSchema creates the session_tokens table when missing.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTokensTable); err != nil {
		return fmt.Errorf("%w: create session_tokens: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, s.getQuery, s.key).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

func (s *SQL) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if _, err := s.db.ExecContext(ctx, s.upsertQuery, s.key, token, s.now().Unix()); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *SQL) Remove(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, s.key); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

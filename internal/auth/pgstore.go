package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint failure.
const pgUniqueViolation = "23505"

// Schema creates the users table used by PGStore.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	username              TEXT PRIMARY KEY,
	email                 TEXT NOT NULL DEFAULT '',
	hashed_password       TEXT NOT NULL,
	is_active             BOOLEAN NOT NULL DEFAULT TRUE,
	is_superuser          BOOLEAN NOT NULL DEFAULT FALSE,
	scopes                TEXT[] NOT NULL DEFAULT '{}',
	failed_login_attempts INTEGER NOT NULL DEFAULT 0,
	account_locked_until  TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const userColumns = `username, email, hashed_password, is_active, is_superuser, scopes,
	failed_login_attempts, account_locked_until, created_at`

// pgDB is the subset of *pgxpool.Pool used by PGStore.
type pgDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps users in PostgreSQL.
type PGStore struct {
	db   pgDB
	pool *pgxpool.Pool
}

// OpenPGStore connects to databaseURL, verifies the connection and ensures
// the users table exists.
func OpenPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PGStore{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema if needed.
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u      User
		locked *time.Time
	)
	if err := row.Scan(&u.Username, &u.Email, &u.PasswordHash, &u.Active, &u.Superuser, &u.Scopes,
		&u.FailedAttempts, &locked, &u.CreatedAt); err != nil {
		return nil, err
	}
	if locked != nil {
		u.LockedUntil = *locked
	}
	return &u, nil
}

// Get implements UserStore.
func (s *PGStore) Get(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// List implements UserStore.
func (s *PGStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// Create implements UserStore.
func (s *PGStore) Create(ctx context.Context, u User) error {
	scopes := u.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (username, email, hashed_password, is_active, is_superuser, scopes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.Username, u.Email, u.PasswordHash, u.Active, u.Superuser, scopes, created)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Delete implements UserStore.
func (s *PGStore) Delete(ctx context.Context, username string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE username=$1`, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return nil
}

// UpdateLoginState implements UserStore.
func (s *PGStore) UpdateLoginState(ctx context.Context, username string, failedAttempts int, lockedUntil time.Time) error {
	var locked *time.Time
	if !lockedUntil.IsZero() {
		locked = &lockedUntil
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET failed_login_attempts=$2, account_locked_until=$3 WHERE username=$1`,
		username, failedAttempts, locked)
	if err != nil {
		return fmt.Errorf("update login state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return nil
}

package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestFileStore_CRUD(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "users.yaml")
	s := NewFileStore(path)

	users, err := s.List(ctx)
	if err != nil || len(users) != 0 {
		t.Fatalf("List() on missing file = %v, %v", users, err)
	}

	for _, name := range []string{"zed", "amy"} {
		if err := s.Create(ctx, User{Username: name, PasswordHash: "x", Active: true}); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}
	if err := s.Create(ctx, User{Username: "amy"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate Create() error = %v, want ErrUserExists", err)
	}

	users, _ = s.List(ctx)
	if len(users) != 2 || users[0].Username != "amy" {
		t.Errorf("List() = %+v", users)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %o, want 0600", info.Mode().Perm())
	}

	locked := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.UpdateLoginState(ctx, "zed", 3, locked); err != nil {
		t.Fatal(err)
	}
	u, err := s.Get(ctx, "zed")
	if err != nil {
		t.Fatal(err)
	}
	if u.FailedAttempts != 3 || !u.LockedUntil.Equal(locked) {
		t.Errorf("Get() = %+v", u)
	}

	if err := s.Delete(ctx, "zed"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "zed"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
	if err := s.Delete(ctx, "zed"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
	if err := s.UpdateLoginState(ctx, "zed", 0, time.Time{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UpdateLoginState() error = %v", err)
	}
}

func TestFileStore_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	if err := os.WriteFile(path, []byte("users:\n  - username: a\n    pasword_hash: x\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).List(context.Background()); err == nil {
		t.Error("expected error for unknown field")
	}
}

// fakeRow returns a fixed scan result.
type fakeRow struct{ err error }

func (r fakeRow) Scan(...any) error { return r.err }

// fakeDB records statements and returns canned results.
type fakeDB struct {
	execSQL  []string
	execTag  pgconn.CommandTag
	execErr  error
	rowErr   error
	queryErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	return f.execTag, f.execErr
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.queryErr
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{err: f.rowErr}
}

func TestPGStore_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	db := &fakeDB{rowErr: pgx.ErrNoRows}
	s := &PGStore{db: db}
	if _, err := s.Get(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Get() error = %v, want ErrUserNotFound", err)
	}

	db = &fakeDB{execErr: &pgconn.PgError{Code: pgUniqueViolation}}
	s = &PGStore{db: db}
	if err := s.Create(ctx, User{Username: "amy"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("Create() error = %v, want ErrUserExists", err)
	}

	db = &fakeDB{execTag: pgconn.NewCommandTag("DELETE 0")}
	s = &PGStore{db: db}
	if err := s.Delete(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Delete() error = %v, want ErrUserNotFound", err)
	}

	db = &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}
	s = &PGStore{db: db}
	if err := s.UpdateLoginState(ctx, "amy", 2, time.Time{}); err != nil {
		t.Errorf("UpdateLoginState() error = %v", err)
	}
	if !strings.Contains(db.execSQL[0], "UPDATE users") {
		t.Errorf("sql = %q", db.execSQL[0])
	}

	db = &fakeDB{queryErr: errors.New("connection reset")}
	s = &PGStore{db: db}
	if _, err := s.List(ctx); err == nil || !strings.Contains(err.Error(), "list users") {
		t.Errorf("List() error = %v", err)
	}

	db = &fakeDB{}
	s = &PGStore{db: db}
	if err := s.Migrate(ctx); err != nil || !strings.Contains(db.execSQL[0], "CREATE TABLE IF NOT EXISTS users") {
		t.Errorf("Migrate() = %v, sql %q", err, db.execSQL)
	}
}

func TestPGStore_Live(t *testing.T) {
	url := os.Getenv("CMDGATE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CMDGATE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPGStore(ctx, url)
	if err != nil {
		t.Fatalf("OpenPGStore() error = %v", err)
	}
	defer s.Close()

	name := "test-" + time.Now().Format("150405.000000")
	if err := s.Create(ctx, User{Username: name, PasswordHash: "x", Active: true, Scopes: []string{"execute"}}); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Delete(ctx, name) }()

	u, err := s.Get(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	if !u.Active || len(u.Scopes) != 1 {
		t.Errorf("Get() = %+v", u)
	}
}

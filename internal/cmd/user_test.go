package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/xdg/cmdgate/internal/auth"
	"github.com/xdg/cmdgate/internal/config"
	"github.com/xdg/cmdgate/internal/prompt"
)

// mockPrompts installs mock interactive input for the duration of the test.
func mockPrompts(t *testing.T, creds *prompt.MockCredentialReader, yesNo *prompt.MockYesNoPrompter) {
	t.Helper()
	origCreds, origYesNo := credentialReader, confirmPrompter
	t.Cleanup(func() { credentialReader, confirmPrompter = origCreds, origYesNo })
	if creds != nil {
		credentialReader = creds
	}
	if yesNo != nil {
		confirmPrompter = yesNo
	}
}

func TestUser_Lifecycle(t *testing.T) {
	testEnv(t)
	mockPrompts(t, prompt.NewMockCredentialReader("s3cret-pass", "s3cret-pass"), prompt.NewMockYesNoPrompter(false))

	out, err := runCLI(t, "user", "add", "alice", "--email", "alice@example.com", "--scope", "exec", "--scope", "tools")
	if err != nil {
		t.Fatalf("user add: %v\n%s", err, out)
	}

	store := auth.NewFileStore(config.UsersPath())
	u, err := store.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if u.Email != "alice@example.com" || len(u.Scopes) != 2 || !u.Active || u.Superuser {
		t.Errorf("stored user = %+v", u)
	}
	if err := auth.CheckPassword(u.PasswordHash, "s3cret-pass"); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	out, err = runCLI(t, "user", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "alice@example.com") || !strings.Contains(out, "exec,tools") {
		t.Errorf("user list = %q", out)
	}

	// Declined confirmation keeps the user.
	out, err = runCLI(t, "user", "remove", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Aborted") {
		t.Errorf("remove output = %q", out)
	}
	if _, err := store.Get(context.Background(), "alice"); err != nil {
		t.Fatal("declined remove deleted the user")
	}

	if _, err := runCLI(t, "user", "remove", "--yes", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), "alice"); err == nil {
		t.Error("user still present after remove --yes")
	}

	_, err = runCLI(t, "user", "remove", "-y", "alice")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("remove missing user error = %v", err)
	}
}

func TestUser_AddErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		creds   []string
		wantErr string
	}{
		{"bad username", []string{"user", "add", "-bad"}, nil, "unknown shorthand"},
		{"invalid username", []string{"user", "add", "a b"}, nil, "invalid username"},
		{"short password", []string{"user", "add", "bob"}, []string{"short"}, "at least"},
		{"mismatch", []string{"user", "add", "bob"}, []string{"password-one", "password-two"}, "do not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testEnv(t)
			mockPrompts(t, prompt.NewMockCredentialReader(tt.creds...), nil)
			_, err := runCLI(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestUser_AddDuplicate(t *testing.T) {
	testEnv(t)
	mockPrompts(t, prompt.NewMockCredentialReader("password-1", "password-1", "password-2", "password-2"), nil)

	if _, err := runCLI(t, "user", "add", "carol"); err != nil {
		t.Fatal(err)
	}
	_, err := runCLI(t, "user", "add", "carol")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("duplicate add error = %v", err)
	}
}

func TestUser_Unlock(t *testing.T) {
	testEnv(t)
	store := auth.NewFileStore(config.UsersPath())
	u, err := auth.NewUser("dave", "", "password-1", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	u.FailedAttempts = 3
	u.LockedUntil = time.Now().Add(time.Hour)
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "user", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "until ") {
		t.Errorf("list should show lockout: %q", out)
	}

	if _, err := runCLI(t, "user", "unlock", "dave"); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(context.Background(), "dave")
	if err != nil {
		t.Fatal(err)
	}
	if got.FailedAttempts != 0 || !got.LockedUntil.IsZero() {
		t.Errorf("after unlock: failed=%d locked=%v", got.FailedAttempts, got.LockedUntil)
	}

	if _, err := runCLI(t, "user", "unlock", "nobody"); err == nil {
		t.Error("expected error unlocking unknown user")
	}
}

func TestUser_ListEmpty(t *testing.T) {
	testEnv(t)
	out, err := runCLI(t, "user", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No users.") {
		t.Errorf("output = %q", out)
	}
}

package auth

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an account that can log in and hold bearer tokens.
type User struct {
	Username       string    `yaml:"username"`
	Email          string    `yaml:"email,omitempty"`
	PasswordHash   string    `yaml:"password_hash"`
	Active         bool      `yaml:"active"`
	Superuser      bool      `yaml:"superuser,omitempty"`
	Scopes         []string  `yaml:"scopes,omitempty"`
	FailedAttempts int       `yaml:"failed_attempts,omitempty"`
	LockedUntil    time.Time `yaml:"locked_until,omitempty"`
	CreatedAt      time.Time `yaml:"created_at"`
}

// UserStore persists users. Get returns an error wrapping ErrUserNotFound
// for unknown users; Create returns one wrapping ErrUserExists for
// duplicates.
type UserStore interface {
	Get(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, u User) error
	Delete(ctx context.Context, username string) error
	UpdateLoginState(ctx context.Context, username string, failedAttempts int, lockedUntil time.Time) error
}

// PasswordCost is the bcrypt cost used for new hashes.
var PasswordCost = bcrypt.DefaultCost

// MinPasswordLength applies to new passwords.
const MinPasswordLength = 8

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// ValidateUsername checks the allowed username shape.
func ValidateUsername(name string) error {
	if !usernameRe.MatchString(name) {
		return fmt.Errorf("invalid username %q: use 1-64 letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword compares password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// dummyHash keeps unknown-user logins as slow as real ones.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("cmdgate-dummy-password"), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// NewUser validates the fields and hashes password.
func NewUser(username, email, password string, superuser bool, scopes []string) (User, error) {
	if err := ValidateUsername(username); err != nil {
		return User{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Superuser:    superuser,
		Scopes:       scopes,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}, nil
}

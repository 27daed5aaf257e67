// Package auth verifies gateway credentials and issues bearer tokens.
//
// Two credential types are accepted: static API keys from configuration and
// HS256 bearer tokens issued by Login. A bearer token is only honoured while
// its subject still exists in the user store and is active.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Method identifies how a principal authenticated.
type Method string

const (
	MethodAPIKey   Method = "api_key"
	MethodBearer   Method = "bearer"
	MethodPassword Method = "password"
)

// Login lockout policy.
const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

// Sentinel errors. Callers must not reveal which one occurred to the client
// beyond "unauthorized".
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrAccountLocked     = errors.New("account locked")
	ErrInactiveUser      = errors.New("user inactive")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
)

// Credential is what the caller presented. At most one field is used;
// Bearer takes precedence.
type Credential struct {
	APIKey string
	Bearer string
}

// Empty reports whether no credential was presented.
func (c Credential) Empty() bool {
	return strings.TrimSpace(c.APIKey) == "" && strings.TrimSpace(c.Bearer) == ""
}

// Method returns the method the credential would authenticate with.
func (c Credential) Method() Method {
	if strings.TrimSpace(c.Bearer) != "" {
		return MethodBearer
	}
	return MethodAPIKey
}

// Principal is an authenticated caller.
type Principal struct {
	Subject   string   `json:"subject"`
	Method    Method   `json:"method"`
	Scopes    []string `json:"scopes,omitempty"`
	Superuser bool     `json:"superuser,omitempty"`
}

// Authenticator verifies credentials and performs password logins.
type Authenticator struct {
	keys   *KeySet
	tokens *TokenIssuer
	users  UserStore
	now    func() time.Time

	// loginMu serializes the read-modify-write of login counters.
	loginMu sync.Mutex
}

// NewAuthenticator builds an Authenticator. tokens and users may be nil, in
// which case bearer tokens and logins are refused.
func NewAuthenticator(keys *KeySet, tokens *TokenIssuer, users UserStore) *Authenticator {
	if keys == nil {
		keys = NewKeySet(nil)
	}
	return &Authenticator{keys: keys, tokens: tokens, users: users, now: time.Now}
}

// Tokens returns the token issuer, or nil if bearer tokens are disabled.
func (a *Authenticator) Tokens() *TokenIssuer {
	return a.tokens
}

// Verify authenticates cred. Errors wrap one of the sentinel errors.
func (a *Authenticator) Verify(ctx context.Context, cred Credential) (*Principal, error) {
	if cred.Empty() {
		return nil, ErrMissingCredential
	}
	if bearer := strings.TrimSpace(cred.Bearer); bearer != "" {
		return a.verifyBearer(ctx, bearer)
	}
	name, ok := a.keys.Match(strings.TrimSpace(cred.APIKey))
	if !ok {
		return nil, fmt.Errorf("%w: unknown API key", ErrInvalidCredential)
	}
	return &Principal{Subject: "key:" + name, Method: MethodAPIKey, Superuser: true}, nil
}

func (a *Authenticator) verifyBearer(ctx context.Context, token string) (*Principal, error) {
	if a.tokens == nil {
		return nil, fmt.Errorf("%w: bearer tokens disabled", ErrInvalidCredential)
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if a.users == nil {
		return nil, fmt.Errorf("%w: no user store", ErrInvalidCredential)
	}
	u, err := a.users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ErrInvalidCredential)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.Active {
		return nil, ErrInactiveUser
	}
	return &Principal{
		Subject:   u.Username,
		Method:    MethodBearer,
		Scopes:    claims.Scopes,
		Superuser: u.Superuser,
	}, nil
}

// Login checks a username and password and issues a bearer token. Five
// consecutive failures lock the account for LockoutDuration; a locked
// account is refused even with the correct password.
func (a *Authenticator) Login(ctx context.Context, username, password string) (Token, *Principal, error) {
	if a.tokens == nil || a.users == nil {
		return Token{}, nil, fmt.Errorf("%w: login disabled", ErrInvalidCredential)
	}

	a.loginMu.Lock()
	defer a.loginMu.Unlock()

	u, err := a.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Spend the same time as a real comparison.
			_ = CheckPassword(dummyHash, password)
			return Token{}, nil, ErrInvalidCredential
		}
		return Token{}, nil, fmt.Errorf("load user: %w", err)
	}

	now := a.now()
	if u.LockedUntil.After(now) {
		return Token{}, nil, ErrAccountLocked
	}
	if !u.Active {
		return Token{}, nil, ErrInactiveUser
	}

	if err := CheckPassword(u.PasswordHash, password); err != nil {
		failed := u.FailedAttempts + 1
		var lockedUntil time.Time
		if failed >= MaxFailedLogins {
			lockedUntil = now.Add(LockoutDuration)
			failed = 0
		}
		if uerr := a.users.UpdateLoginState(ctx, u.Username, failed, lockedUntil); uerr != nil {
			return Token{}, nil, fmt.Errorf("record failed login: %w", uerr)
		}
		if !lockedUntil.IsZero() {
			return Token{}, nil, ErrAccountLocked
		}
		return Token{}, nil, ErrInvalidCredential
	}

	if u.FailedAttempts != 0 || !u.LockedUntil.IsZero() {
		if err := a.users.UpdateLoginState(ctx, u.Username, 0, time.Time{}); err != nil {
			return Token{}, nil, fmt.Errorf("reset login state: %w", err)
		}
	}

	tok, err := a.tokens.Issue(u.Username, u.Scopes)
	if err != nil {
		return Token{}, nil, err
	}
	return tok, &Principal{
		Subject:   u.Username,
		Method:    MethodPassword,
		Scopes:    u.Scopes,
		Superuser: u.Superuser,
	}, nil
}

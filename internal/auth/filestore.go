package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// usersFile is the on-disk layout of a FileStore.
type usersFile struct {
	Users []User `yaml:"users"`
}

// FileStore keeps users in a YAML file. Every mutation rewrites the file
// atomically with 0600 permissions. Reads go to disk so edits made by the
// CLI are seen by a running server.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (*usersFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &usersFile{}, nil
		}
		return nil, fmt.Errorf("read users %q: %w", s.path, err)
	}
	var f usersFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse users %q: %w", s.path, err)
	}
	return &f, nil
}

func (s *FileStore) save(f *usersFile) error {
	sort.Slice(f.Users, func(i, j int) bool { return f.Users[i].Username < f.Users[j].Username })
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}

	// Write to a temp file in the same directory, then rename for atomicity.
	tmp, err := os.CreateTemp(dir, ".users-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (f *usersFile) index(username string) int {
	for i, u := range f.Users {
		if u.Username == username {
			return i
		}
	}
	return -1
}

// Get implements UserStore.
func (s *FileStore) Get(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	i := f.index(username)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	u := f.Users[i]
	return &u, nil
}

// List implements UserStore.
func (s *FileStore) List(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(f.Users, func(i, j int) bool { return f.Users[i].Username < f.Users[j].Username })
	return f.Users, nil
}

// Create implements UserStore.
func (s *FileStore) Create(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if f.index(u.Username) >= 0 {
		return fmt.Errorf("%w: %s", ErrUserExists, u.Username)
	}
	f.Users = append(f.Users, u)
	return s.save(f)
}

// Delete implements UserStore.
func (s *FileStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	i := f.index(username)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	f.Users = append(f.Users[:i], f.Users[i+1:]...)
	return s.save(f)
}

// UpdateLoginState implements UserStore.
func (s *FileStore) UpdateLoginState(_ context.Context, username string, failedAttempts int, lockedUntil time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	i := f.index(username)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	f.Users[i].FailedAttempts = failedAttempts
	f.Users[i].LockedUntil = lockedUntil
	return s.save(f)
}

// Package tokenstore persists the single opaque session credential.
//
// It is the Go rendition of the browser's localStorage slot: one key,
// written on login, read on startup revalidation, removed on logout or
// when the registry confirms the credential is invalid. Token content is
// opaque — no validation happens here.
package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is the durable credential slot. At most one credential is held at
// a time; Set overwrites, Clear is idempotent.
type Store interface {
	// Set persists the credential, overwriting any prior value.
	Set(token string) error
	// Get returns the credential and true, or "" and false when absent.
	Get() (string, bool)
	// Clear removes the credential. Clearing an empty store is not an error.
	Clear() error
}

// credentialsFile is the file name under the application config directory.
const credentialsFile = "credentials"

// appDir is the directory created under the user config dir.
const appDir = "hrds"

// DefaultPath returns the standard location of the credentials file:
// <UserConfigDir>/hrds/credentials.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("tokenstore: resolve user config dir: %w", err)
	}
	return filepath.Join(dir, appDir, credentialsFile), nil
}

// FileStore keeps the credential in a 0600 file, replaced atomically on
// every Set so a crash never leaves a truncated credential behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore at path. An empty path selects
// DefaultPath().
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("tokenstore: create dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("tokenstore: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("tokenstore: replace: %w", err)
	}
	return nil
}

func (s *FileStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("tokenstore: clear: %w", err)
	}
	return nil
}

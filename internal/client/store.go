// Package client talks to the companion API and keeps the signed-in session
// on disk between invocations.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/healthcompanion/companion/internal/accounts"
)

// Session is the locally persisted sign-in state.
type Session struct {
	Token   string         `json:"token"`
	Profile *accounts.User `json:"profile,omitempty"`
}

// FileStore persists a Session as JSON readable only by its owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the session file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("client: config dir: %w", err)
	}
	return filepath.Join(dir, "health-companion", "session.json"), nil
}

// Save writes the session atomically with 0600 permissions.
func (s *FileStore) Save(session Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("client: save session: %w", err)
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("client: encode session: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("client: save session: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("client: save session: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("client: save session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("client: save session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("client: save session: %w", err)
	}
	return nil
}

// Load reads the stored session. A missing file yields an empty session.
func (s *FileStore) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("client: load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("client: decode session: %w", err)
	}
	return session, nil
}

// Clear removes the stored session. Clearing a missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("client: clear session: %w", err)
	}
	return nil
}

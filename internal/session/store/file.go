package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"patas/internal/session"
)

// FileStore persists the credential pair as a JSON document on disk.
//
// Error Contract:
// - Load returns (nil, nil) when no file exists or the stored quadruple is
//   incomplete; a partial pair is treated as absent, never surfaced.
// - Save replaces the whole document atomically (write to temp file, then
//   rename), so a reader never observes a torn write.
// - Clear is idempotent.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore rooted at path. Parent directories are
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*session.TokenPair, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var pair session.TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}
	if !complete(pair) {
		return nil, nil
	}
	return &pair, nil
}

func (s *FileStore) Save(pair session.TokenPair) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	return nil
}

func complete(pair session.TokenPair) bool {
	return pair.AccessToken != "" &&
		pair.RefreshToken != "" &&
		!pair.AccessExpiresAt.IsZero() &&
		!pair.RefreshExpiresAt.IsZero()
}

package keys

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps each key in <dir>/<name>.key as base64 text.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it with 0700 if missing.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".key")
}

// Load reads the named key.
func (s *FileStore) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key file: %w", err)
	}
	return key, nil
}

// CreateIfAbsent writes the key to a temp file and hard-links it into place.
// The link fails if the key exists, so concurrent writers converge on one value
// and readers never see a partially written file.
func (s *FileStore) CreateIfAbsent(ctx context.Context, name string, value []byte) ([]byte, error) {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp key file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to chmod temp key file: %w", err)
	}
	if _, err := tmp.WriteString(base64.StdEncoding.EncodeToString(value)); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp key file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to sync temp key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp key file: %w", err)
	}

	if err := os.Link(tmp.Name(), s.path(name)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return s.Load(ctx, name)
		}
		return nil, fmt.Errorf("failed to link key file: %w", err)
	}

	return value, nil
}

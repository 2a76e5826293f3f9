package keys

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/dtroode/medisupply-security/internal/model"
)

// ObjectStorage is an object store that can refuse to overwrite an object.
// First-boot key creation relies on that refusal.
type ObjectStorage interface {
	model.Storage
	model.ConditionalStorage
}

// ObjectStore keeps keys as objects in a bucket (MinIO or S3).
type ObjectStore struct {
	storage ObjectStorage
	prefix  string
}

// NewObjectStore creates an ObjectStore writing objects under prefix.
func NewObjectStore(storage ObjectStorage, prefix string) *ObjectStore {
	return &ObjectStore{storage: storage, prefix: prefix}
}

func (s *ObjectStore) objectKey(name string) string {
	return s.prefix + name + ".key"
}

// Load downloads the named key.
func (s *ObjectStore) Load(ctx context.Context, name string) ([]byte, error) {
	exists, err := s.storage.Exists(ctx, s.objectKey(name))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrKeyNotFound
	}

	rc, err := s.storage.Download(ctx, s.objectKey(name))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read key object: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key object: %w", err)
	}
	return key, nil
}

// CreateIfAbsent uploads value with a conditional put, then reads the object
// back so every caller adopts the persisted value.
func (s *ObjectStore) CreateIfAbsent(ctx context.Context, name string, value []byte) ([]byte, error) {
	encoded := []byte(base64.StdEncoding.EncodeToString(value))

	err := s.storage.UploadIfAbsent(ctx, s.objectKey(name), bytes.NewReader(encoded), int64(len(encoded)))
	if err != nil && !errors.Is(err, model.ErrAlreadyExists) {
		return nil, err
	}

	return s.Load(ctx, name)
}

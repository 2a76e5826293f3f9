package model

import (
	"context"
	"io"
)

// Storage is an object store used to persist key material.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ConditionalStorage is implemented by object stores that can refuse to
// overwrite an existing object.
type ConditionalStorage interface {
	// UploadIfAbsent returns ErrAlreadyExists when key is already present.
	UploadIfAbsent(ctx context.Context, key string, reader io.Reader, size int64) error
}

// Pinger is implemented by backends that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

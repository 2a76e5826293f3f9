// Package keys owns the service's symmetric key material.
//
// Two keys exist: the field cipher key and the token signing secret. Each is
// generated on first boot, persisted through a Store with create-if-absent
// semantics and loaded unchanged on every later boot. Losing the store
// invalidates every issued token and every encrypted record.
package keys

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
)

// ErrKeyNotFound is returned by a Store when a key has never been created.
var ErrKeyNotFound = errors.New("key not found")

// Key names and sizes.
const (
	CipherKeyName  = "cipher"
	CipherKeySize  = 32
	SigningKeyName = "signing"
	SigningKeySize = 64
)

// Store persists named keys.
type Store interface {
	// Load returns ErrKeyNotFound when the key does not exist.
	Load(ctx context.Context, name string) ([]byte, error)
	// CreateIfAbsent persists value unless the key already exists and returns
	// the value that is stored afterwards.
	CreateIfAbsent(ctx context.Context, name string, value []byte) ([]byte, error)
}

// Keys is the immutable key material handed to consumers.
type Keys struct {
	Cipher  []byte
	Signing []byte
}

// Manager loads or creates keys exactly once.
type Manager struct {
	store  Store
	logger *logger.Logger

	once sync.Once
	keys Keys
	err  error
}

// NewManager creates a Manager over store.
func NewManager(store Store, logger *logger.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Init is the single-writer initialization step. It runs once; later calls
// return the first outcome.
func (m *Manager) Init(ctx context.Context) error {
	m.once.Do(func() {
		m.keys, m.err = m.init(ctx)
	})
	return m.err
}

// Keys returns the key material, initializing it if needed.
func (m *Manager) Keys(ctx context.Context) (Keys, error) {
	if err := m.Init(ctx); err != nil {
		return Keys{}, err
	}
	return m.keys, nil
}

func (m *Manager) init(ctx context.Context) (Keys, error) {
	cipherKey, err := m.loadOrCreate(ctx, CipherKeyName, CipherKeySize)
	if err != nil {
		return Keys{}, err
	}

	signingKey, err := m.loadOrCreate(ctx, SigningKeyName, SigningKeySize)
	if err != nil {
		return Keys{}, err
	}

	return Keys{Cipher: cipherKey, Signing: signingKey}, nil
}

func (m *Manager) loadOrCreate(ctx context.Context, name string, size int) ([]byte, error) {
	key, err := m.store.Load(ctx, name)
	if err == nil {
		if len(key) != size {
			return nil, fmt.Errorf("%w: key %q has length %d, want %d", model.ErrKeyStore, name, len(key), size)
		}
		m.logger.Debug("Key manager: loaded key", "name", name)
		return key, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		m.logger.Error("Key manager: failed to load key", "name", name, "error", err.Error())
		return nil, fmt.Errorf("%w: load %q: %v", model.ErrKeyStore, name, err)
	}

	fresh := make([]byte, size)
	if _, err := rand.Read(fresh); err != nil {
		return nil, fmt.Errorf("%w: generate %q: %v", model.ErrKeyStore, name, err)
	}

	stored, err := m.store.CreateIfAbsent(ctx, name, fresh)
	if err != nil {
		m.logger.Error("Key manager: failed to persist key", "name", name, "error", err.Error())
		return nil, fmt.Errorf("%w: persist %q: %v", model.ErrKeyStore, name, err)
	}
	if len(stored) != size {
		return nil, fmt.Errorf("%w: key %q has length %d, want %d", model.ErrKeyStore, name, len(stored), size)
	}

	m.logger.Info("Key manager: key ready", "name", name, "generated", bytes.Equal(stored, fresh))

	return stored, nil
}

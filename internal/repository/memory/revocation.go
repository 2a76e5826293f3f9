package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dtroode/medisupply-security/internal/model"
)

var _ model.RevocationList = (*RevocationList)(nil)

// RevocationList remembers revoked token ids until the token would have
// expired anyway.
type RevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewRevocationList() *RevocationList {
	return &RevocationList{entries: make(map[string]time.Time), now: time.Now}
}

func (l *RevocationList) Revoke(_ context.Context, jti string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !until.After(l.now()) {
		return nil
	}
	l.entries[jti] = until
	l.purgeLocked()
	return nil
}

func (l *RevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.entries[jti]
	if !ok {
		return false, nil
	}
	if !until.After(l.now()) {
		delete(l.entries, jti)
		return false, nil
	}
	return true, nil
}

func (l *RevocationList) purgeLocked() {
	now := l.now()
	for jti, until := range l.entries {
		if !until.After(now) {
			delete(l.entries, jti)
		}
	}
}

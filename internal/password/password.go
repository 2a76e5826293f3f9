// Package password hashes and verifies user passwords.
//
// New hashes are argon2id in the PHC string format
// ($argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>). Verification also accepts
// bcrypt hashes so accounts imported from other systems keep working.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	saltLen = 16
	keyLen  = 32
)

var (
	// ErrMismatch is returned when the password does not match the hash.
	ErrMismatch = errors.New("password mismatch")
	// ErrInvalidHash is returned for hashes in an unknown or corrupt format.
	ErrInvalidHash = errors.New("invalid password hash")
)

// Params are the argon2id cost parameters.
type Params struct {
	Time   uint32
	MemKiB uint32
	Par    uint8
}

// DefaultParams mirror the KDF defaults of the service configuration.
var DefaultParams = Params{Time: 3, MemKiB: 64 * 1024, Par: 2}

// Hasher produces and checks password verifiers.
type Hasher struct {
	params Params
}

// NewHasher creates a Hasher. Zero fields fall back to DefaultParams.
func NewHasher(params Params) *Hasher {
	if params.Time == 0 {
		params.Time = DefaultParams.Time
	}
	if params.MemKiB == 0 {
		params.MemKiB = DefaultParams.MemKiB
	}
	if params.Par == 0 {
		params.Par = DefaultParams.Par
	}
	return &Hasher{params: params}
}

// Hash returns an encoded argon2id hash of password with a random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemKiB, h.params.Par, keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemKiB,
		h.params.Time,
		h.params.Par,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify checks password against an encoded hash in constant time.
func (h *Hasher) Verify(encoded, password string) error {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return compareArgon2id(encoded, password)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		if err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return ErrMismatch
			}
			return fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
		return nil
	default:
		return ErrInvalidHash
	}
}

func compareArgon2id(encoded, password string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return ErrInvalidHash
	}

	var mem, iters uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &threads); err != nil {
		return ErrInvalidHash
	}
	if mem == 0 || iters == 0 || threads == 0 {
		return ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrInvalidHash
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return ErrInvalidHash
	}

	derived := argon2.IDKey([]byte(password), salt, iters, mem, threads, uint32(len(hash)))
	if subtle.ConstantTimeCompare(derived, hash) != 1 {
		return ErrMismatch
	}
	return nil
}

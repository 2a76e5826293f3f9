package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
)

// FieldCipher encrypts and decrypts single field values.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Records stores records with their sensitive fields encrypted at rest.
type Records struct {
	repo   model.RecordRepository
	cipher FieldCipher
	now    func() time.Time
	logger *logger.Logger
}

func NewRecords(repo model.RecordRepository, cipher FieldCipher, logger *logger.Logger) *Records {
	return &Records{
		repo:   repo,
		cipher: cipher,
		now:    time.Now,
		logger: logger,
	}
}

// Put replaces the record stored under id. Every sensitive field is encrypted
// before it reaches the repository.
func (s *Records) Put(ctx context.Context, id string, plain, sensitive map[string]string, createdBy string) (model.Record, error) {
	if id == "" {
		return model.Record{}, model.NewValidationError("id", "must not be empty")
	}
	for name := range sensitive {
		if _, dup := plain[name]; dup {
			return model.Record{}, model.NewValidationError(name, "field is both plain and sensitive")
		}
	}

	cipherFields := make(map[string]string, len(sensitive))
	for name, value := range sensitive {
		ct, err := s.cipher.Encrypt(value)
		if err != nil {
			return model.Record{}, fmt.Errorf("failed to encrypt field %s: %w", name, err)
		}
		cipherFields[name] = ct
	}

	secure := model.SecureRecord{
		ID:           id,
		PlainFields:  maps.Clone(plain),
		CipherFields: cipherFields,
		CreatedBy:    createdBy,
		CreatedAt:    s.now().UTC(),
	}
	if secure.PlainFields == nil {
		secure.PlainFields = map[string]string{}
	}

	if err := s.repo.Replace(ctx, secure); err != nil {
		return model.Record{}, fmt.Errorf("failed to store record: %w", err)
	}

	return model.Record{
		ID:              secure.ID,
		PlainFields:     maps.Clone(secure.PlainFields),
		SensitiveFields: maps.Clone(sensitive),
		CreatedBy:       secure.CreatedBy,
		CreatedAt:       secure.CreatedAt,
	}, nil
}

// Get returns the decrypted record or model.ErrNotFound.
func (s *Records) Get(ctx context.Context, id string) (model.Record, error) {
	secure, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Record{}, model.ErrNotFound
		}
		return model.Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	return s.decrypt(secure)
}

// List returns all records in insertion order.
func (s *Records) List(ctx context.Context) ([]model.Record, error) {
	secure, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]model.Record, 0, len(secure))
	for _, sr := range secure {
		rec, err := s.decrypt(sr)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes id and reports whether it existed.
func (s *Records) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	return deleted, nil
}

func (s *Records) decrypt(secure model.SecureRecord) (model.Record, error) {
	sensitive := make(map[string]string, len(secure.CipherFields))
	for name, ct := range secure.CipherFields {
		pt, err := s.cipher.Decrypt(ct)
		if err != nil {
			s.logger.Error("Records service: failed to decrypt field",
				"record_id", secure.ID,
				"field", name,
				"error", err.Error())
			return model.Record{}, fmt.Errorf("record %s field %s: %w", secure.ID, name, err)
		}
		sensitive[name] = pt
	}

	return model.Record{
		ID:              secure.ID,
		PlainFields:     maps.Clone(secure.PlainFields),
		SensitiveFields: sensitive,
		CreatedBy:       secure.CreatedBy,
		CreatedAt:       secure.CreatedAt,
	}, nil
}

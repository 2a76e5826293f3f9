package model

import (
	"context"
	"time"
)

// RecordRepository persists encrypted records.
type RecordRepository interface {
	// Replace stores record under its ID, discarding any previous version.
	Replace(ctx context.Context, record SecureRecord) error
	GetByID(ctx context.Context, id string) (SecureRecord, error)
	// List returns records in insertion order.
	List(ctx context.Context) ([]SecureRecord, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// SecureRecord is a record as it exists at rest.
// CipherFields hold FieldCipher output only.
type SecureRecord struct {
	ID           string
	PlainFields  map[string]string
	CipherFields map[string]string
	CreatedBy    string
	CreatedAt    time.Time
}

// Record is a SecureRecord with its sensitive fields decrypted.
type Record struct {
	ID              string
	PlainFields     map[string]string
	SensitiveFields map[string]string
	CreatedBy       string
	CreatedAt       time.Time
}

// Customer field names.
const (
	CustomerFieldName  = "name"
	CustomerFieldEmail = "email"
	CustomerFieldPhone = "phone"
)

// CustomerInput carries the fields accepted when creating a customer.
type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

// Customer is the decrypted view of a customer record.
type Customer struct {
	Name      string
	Email     string
	Phone     string
	CreatedBy string
	CreatedAt time.Time
}

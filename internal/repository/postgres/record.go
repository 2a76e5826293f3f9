package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/medisupply-security/internal/model"
)

var _ model.RecordRepository = (*RecordRepository)(nil)

type RecordRepository struct {
	db *Connection
}

func NewRecordRepository(db *Connection) *RecordRepository {
	return &RecordRepository{
		db: db,
	}
}

// Replace upserts the whole row. seq is left untouched on conflict so a
// replaced record keeps its place in List.
func (r *RecordRepository) Replace(ctx context.Context, record model.SecureRecord) error {
	query := `
		INSERT INTO records (id, plain_fields, cipher_fields, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			plain_fields  = EXCLUDED.plain_fields,
			cipher_fields = EXCLUDED.cipher_fields,
			created_by    = EXCLUDED.created_by,
			created_at    = EXCLUDED.created_at`

	_, err := r.db.Exec(ctx, query,
		record.ID, nonNil(record.PlainFields), nonNil(record.CipherFields), record.CreatedBy, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to replace record: %w", err)
	}

	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (model.SecureRecord, error) {
	query := `
		SELECT id, plain_fields, cipher_fields, created_by, created_at
		FROM records
		WHERE id = $1`

	var record model.SecureRecord
	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.PlainFields, &record.CipherFields, &record.CreatedBy, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SecureRecord{}, model.ErrNotFound
		}
		return model.SecureRecord{}, fmt.Errorf("failed to get record: %w", err)
	}

	return record, nil
}

func (r *RecordRepository) List(ctx context.Context) ([]model.SecureRecord, error) {
	query := `
		SELECT id, plain_fields, cipher_fields, created_by, created_at
		FROM records
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []model.SecureRecord{}
	for rows.Next() {
		var record model.SecureRecord
		err := rows.Scan(&record.ID, &record.PlainFields, &record.CipherFields, &record.CreatedBy, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

func (r *RecordRepository) Delete(ctx context.Context, id string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

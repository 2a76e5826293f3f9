package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dtroode/medisupply-security/internal/model"
)

var _ model.RecordRepository = (*RecordRepository)(nil)

// RecordRepository keeps records in insertion order. Replacing an existing id
// swaps the stored value in one step and keeps its position.
type RecordRepository struct {
	mu      sync.RWMutex
	records map[string]model.SecureRecord
	order   []string
}

func NewRecordRepository() *RecordRepository {
	return &RecordRepository{records: make(map[string]model.SecureRecord)}
}

func (r *RecordRepository) Replace(_ context.Context, record model.SecureRecord) error {
	stored := cloneRecord(record)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.ID]; !ok {
		r.order = append(r.order, record.ID)
	}
	r.records[record.ID] = stored
	return nil
}

func (r *RecordRepository) GetByID(_ context.Context, id string) (model.SecureRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return model.SecureRecord{}, model.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (r *RecordRepository) List(_ context.Context) ([]model.SecureRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.SecureRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneRecord(r.records[id]))
	}
	return out, nil
}

func (r *RecordRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return false, nil
	}
	delete(r.records, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return true, nil
}

func cloneRecord(rec model.SecureRecord) model.SecureRecord {
	rec.PlainFields = maps.Clone(rec.PlainFields)
	rec.CipherFields = maps.Clone(rec.CipherFields)
	return rec
}

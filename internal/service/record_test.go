package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/medisupply-security/internal/mocks"
	"github.com/dtroode/medisupply-security/internal/model"
	"github.com/dtroode/medisupply-security/internal/repository/memory"
	"github.com/dtroode/medisupply-security/internal/testutil"
)

func TestRecords_PutGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRecordRepository()
	svc := NewRecords(repo, newTestCipher(t), testutil.MakeNoopLogger())

	put, err := svc.Put(ctx, "r1",
		map[string]string{"name": "Alice"},
		map[string]string{"ssn": "123-45-6789"},
		"admin")
	require.NoError(t, err)
	assert.Equal(t, "123-45-6789", put.SensitiveFields["ssn"])

	stored, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.PlainFields["name"])
	assert.NotEqual(t, "123-45-6789", stored.CipherFields["ssn"])
	assert.NotContains(t, stored.CipherFields["ssn"], "6789")
	_, leaked := stored.PlainFields["ssn"]
	assert.False(t, leaked)

	got, err := svc.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.PlainFields["name"])
	assert.Equal(t, "123-45-6789", got.SensitiveFields["ssn"])
	assert.Equal(t, "admin", got.CreatedBy)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRecords_PutReplaces(t *testing.T) {
	ctx := context.Background()
	svc := NewRecords(memory.NewRecordRepository(), newTestCipher(t), testutil.MakeNoopLogger())

	_, err := svc.Put(ctx, "a", nil, map[string]string{"v": "1"}, "admin")
	require.NoError(t, err)
	_, err = svc.Put(ctx, "b", nil, map[string]string{"v": "2"}, "admin")
	require.NoError(t, err)
	_, err = svc.Put(ctx, "a", map[string]string{"note": "x"}, map[string]string{"v": "3"}, "user1")
	require.NoError(t, err)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "3", all[0].SensitiveFields["v"])
	assert.Equal(t, "x", all[0].PlainFields["note"])
	assert.Equal(t, "user1", all[0].CreatedBy)
	assert.Equal(t, "b", all[1].ID)
}

func TestRecords_Validation(t *testing.T) {
	svc := NewRecords(memory.NewRecordRepository(), newTestCipher(t), testutil.MakeNoopLogger())

	_, err := svc.Put(context.Background(), "", nil, nil, "admin")
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Put(context.Background(), "r", map[string]string{"f": "a"}, map[string]string{"f": "b"}, "admin")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestRecords_GetMissing(t *testing.T) {
	svc := NewRecords(memory.NewRecordRepository(), newTestCipher(t), testutil.MakeNoopLogger())

	_, err := svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, model.ErrNotFound)

	deleted, err := svc.Delete(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRecords_TamperedCiphertext(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRecordRepository()
	svc := NewRecords(repo, newTestCipher(t), testutil.MakeNoopLogger())

	_, err := svc.Put(ctx, "r1", nil, map[string]string{"ssn": "123"}, "admin")
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	ct := []byte(stored.CipherFields["ssn"])
	mid := len(ct) / 2
	if ct[mid] == 'A' {
		ct[mid] = 'B'
	} else {
		ct[mid] = 'A'
	}
	stored.CipherFields["ssn"] = string(ct)
	require.NoError(t, repo.Replace(ctx, stored))

	_, err = svc.Get(ctx, "r1")
	require.ErrorIs(t, err, model.ErrDecryption)

	_, err = svc.List(ctx)
	require.ErrorIs(t, err, model.ErrDecryption)
}

func TestRecords_RepositoryErrors(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewRecordRepository(t)
	svc := NewRecords(repo, newTestCipher(t), testutil.MakeNoopLogger())

	repo.On("Replace", ctx, mock.Anything).Return(model.ErrStoreUnavailable).Once()
	repo.On("GetByID", ctx, "r1").Return(model.SecureRecord{}, model.ErrStoreUnavailable).Once()
	repo.On("List", ctx).Return(nil, model.ErrStoreUnavailable).Once()
	repo.On("Delete", ctx, "r1").Return(false, model.ErrStoreUnavailable).Once()

	_, err := svc.Put(ctx, "r1", nil, nil, "admin")
	require.ErrorIs(t, err, model.ErrStoreUnavailable)

	_, err = svc.Get(ctx, "r1")
	require.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, model.ErrNotFound)

	_, err = svc.List(ctx)
	require.ErrorIs(t, err, model.ErrStoreUnavailable)

	_, err = svc.Delete(ctx, "r1")
	require.ErrorIs(t, err, model.ErrStoreUnavailable)
}

package emergency

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/care-access/internal/domain"
)

func setupMockTokenDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresTokenStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock, NewPostgresTokenStore(db)
}

func TestPostgresTokenStore_Put(t *testing.T) {
	_, mock, store := setupMockTokenDB(t)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	revoked := issued.Add(time.Minute)
	tok := &domain.EmergencyToken{
		Token:     "raw",
		PatientID: "p-1",
		Scope:     []domain.EmergencyField{domain.FieldAllergies, domain.FieldBloodType},
		IssuedBy:  "u-1",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
		Revoked:   true,
		RevokedAt: &revoked,
	}

	mock.ExpectExec(`INSERT INTO emergency_tokens`).
		WithArgs(Digest("raw"), "p-1", sqlmock.AnyArg(), "u-1", issued, issued.Add(time.Hour), true, revoked).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Put(context.Background(), Digest("raw"), tok, time.Hour))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTokenStore_Get(t *testing.T) {
	_, mock, store := setupMockTokenDB(t)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"patient_id", "scope", "issued_by", "issued_at", "expires_at", "revoked", "revoked_at",
	}).AddRow("p-1", "{allergies,blood_type}", "u-1", issued, issued.Add(time.Hour), false, nil)

	mock.ExpectQuery(`SELECT patient_id, scope`).
		WithArgs("digest-1").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "digest-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", got.PatientID)
	assert.Equal(t, []domain.EmergencyField{domain.FieldAllergies, domain.FieldBloodType}, got.Scope)
	assert.Equal(t, issued.Add(time.Hour), got.ExpiresAt)
	assert.False(t, got.Revoked)
	assert.Nil(t, got.RevokedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTokenStore_GetNotFound(t *testing.T) {
	_, mock, store := setupMockTokenDB(t)

	mock.ExpectQuery(`SELECT patient_id, scope`).
		WithArgs("digest-1").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "digest-1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTokenStore_GetFailure(t *testing.T) {
	_, mock, store := setupMockTokenDB(t)

	mock.ExpectQuery(`SELECT patient_id, scope`).
		WithArgs("digest-1").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), "digest-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenNotFound)
}

func TestPostgresTokenStore_DeleteAndPurge(t *testing.T) {
	_, mock, store := setupMockTokenDB(t)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM emergency_tokens WHERE token_digest`).
		WithArgs("digest-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM emergency_tokens WHERE expires_at`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, store.Delete(context.Background(), "digest-1"))
	n, err := store.PurgeExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_PurgeUsesDurableStore(t *testing.T) {
	_, mock, store := setupMockTokenDB(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(ServiceDeps{Store: store, Now: func() time.Time { return now }}, Options{})

	mock.ExpectExec(`DELETE FROM emergency_tokens WHERE expires_at`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := svc.Purge(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

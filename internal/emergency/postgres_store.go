package emergency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/spec-kit/care-access/internal/domain"
)

// PostgresTokenStore is the durable store: revocations survive restarts and
// expired rows remain until PurgeExpired removes them.
type PostgresTokenStore struct {
	db *sql.DB
}

func NewPostgresTokenStore(db *sql.DB) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

const upsertTokenSQL = `
INSERT INTO emergency_tokens (token_digest, patient_id, scope, issued_by, issued_at, expires_at, revoked, revoked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (token_digest) DO UPDATE
SET revoked = EXCLUDED.revoked, revoked_at = EXCLUDED.revoked_at`

// Put ignores ttl; expiry is evaluated from expires_at on every read.
func (s *PostgresTokenStore) Put(ctx context.Context, digest string, token *domain.EmergencyToken, _ time.Duration) error {
	scope := make([]string, len(token.Scope))
	for i, f := range token.Scope {
		scope[i] = string(f)
	}
	var revokedAt any
	if token.RevokedAt != nil {
		revokedAt = *token.RevokedAt
	}

	_, err := s.db.ExecContext(ctx, upsertTokenSQL,
		digest,
		token.PatientID,
		pq.Array(scope),
		token.IssuedBy,
		token.IssuedAt,
		token.ExpiresAt,
		token.Revoked,
		revokedAt,
	)
	if err != nil {
		return fmt.Errorf("put emergency token: %w", err)
	}
	return nil
}

const selectTokenSQL = `
SELECT patient_id, scope, issued_by, issued_at, expires_at, revoked, revoked_at
FROM emergency_tokens
WHERE token_digest = $1`

func (s *PostgresTokenStore) Get(ctx context.Context, digest string) (*domain.EmergencyToken, error) {
	var (
		token     domain.EmergencyToken
		scope     pq.StringArray
		revokedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, selectTokenSQL, digest).Scan(
		&token.PatientID,
		&scope,
		&token.IssuedBy,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.Revoked,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("get emergency token: %w", err)
	}

	token.Scope = make([]domain.EmergencyField, len(scope))
	for i, f := range scope {
		token.Scope[i] = domain.EmergencyField(f)
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		token.RevokedAt = &t
	}
	return &token, nil
}

func (s *PostgresTokenStore) Delete(ctx context.Context, digest string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM emergency_tokens WHERE token_digest = $1`, digest); err != nil {
		return fmt.Errorf("delete emergency token: %w", err)
	}
	return nil
}

// PurgeExpired drops rows that expired before the cutoff and reports how many went.
func (s *PostgresTokenStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM emergency_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge emergency tokens: %w", err)
	}
	return res.RowsAffected()
}

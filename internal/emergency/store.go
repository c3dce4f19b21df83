package emergency

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/spec-kit/care-access/internal/domain"
)

// ErrTokenNotFound is returned by stores for unknown or already evicted digests.
var ErrTokenNotFound = errors.New("emergency token not found")

// TokenStore persists emergency token records keyed by digest.
// Raw token values never reach a store.
type TokenStore interface {
	Put(ctx context.Context, digest string, token *domain.EmergencyToken, ttl time.Duration) error
	Get(ctx context.Context, digest string) (*domain.EmergencyToken, error)
	Delete(ctx context.Context, digest string) error
}

// Purger is implemented by stores that keep records past expiry.
type Purger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Digest is the at-rest key of a raw token.
func Digest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

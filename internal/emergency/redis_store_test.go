package emergency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/care-access/internal/domain"
)

func newRedisTokenStore(t *testing.T) (*miniredis.Miniredis, *RedisTokenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisTokenStore(client)
}

func TestRedisTokenStore_PutGet(t *testing.T) {
	mr, store := newRedisTokenStore(t)
	ctx := context.Background()
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := &domain.EmergencyToken{
		Token:     "raw-value",
		PatientID: "p-1",
		Scope:     []domain.EmergencyField{domain.FieldBloodType},
		IssuedBy:  "u-1",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	}

	digest := Digest(tok.Token)
	require.NoError(t, store.Put(ctx, digest, tok, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL(tokenKeyPrefix+digest))

	raw, err := mr.Get(tokenKeyPrefix + digest)
	require.NoError(t, err)
	assert.NotContains(t, raw, "raw-value")

	got, err := store.Get(ctx, digest)
	require.NoError(t, err)
	assert.Empty(t, got.Token)
	assert.Equal(t, "p-1", got.PatientID)
	assert.Equal(t, tok.Scope, got.Scope)
	assert.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))
	assert.Nil(t, got.RevokedAt)
}

func TestRedisTokenStore_MissingAndKeyExpiry(t *testing.T) {
	mr, store := newRedisTokenStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, Digest("nope"))
	assert.ErrorIs(t, err, ErrTokenNotFound)

	digest := Digest("short-lived")
	require.NoError(t, store.Put(ctx, digest, &domain.EmergencyToken{PatientID: "p-1"}, time.Minute))
	mr.FastForward(time.Minute)
	_, err = store.Get(ctx, digest)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	assert.Error(t, store.Put(ctx, digest, &domain.EmergencyToken{PatientID: "p-1"}, 0))
}

func TestRedisTokenStore_RevocationOutlivesRestart(t *testing.T) {
	mr, store := newRedisTokenStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dir := &fakeDirectory{patients: map[string]string{"p-1": "org-1"}}
	svc := NewService(ServiceDeps{Store: store, Patients: dir, Now: func() time.Time { return now }}, Options{})
	ctx := context.Background()

	tok, err := svc.Issue(ctx, IssueRequest{PatientID: "p-1", TTL: 2 * time.Hour}, medico)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, tok.Token))

	// A fresh service over the same backend sees the revocation.
	restarted := NewService(ServiceDeps{Store: NewRedisTokenStore(redis.NewClient(&redis.Options{Addr: mr.Addr()})), Patients: dir, Now: func() time.Time { return now }}, Options{})
	v, err := restarted.Validate(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, ReasonRevoked, v.Reason)
	assert.Equal(t, 2*time.Hour+defaultRetention, mr.TTL(tokenKeyPrefix+Digest(tok.Token)))
}

func TestRedisTokenStore_ExpiredTokenReportsExpired(t *testing.T) {
	mr, store := newRedisTokenStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dir := &fakeDirectory{patients: map[string]string{"p-1": "org-1"}}
	svc := NewService(ServiceDeps{Store: store, Patients: dir, Now: func() time.Time { return now }}, Options{Retention: 24 * time.Hour})
	ctx := context.Background()

	tok, err := svc.Issue(ctx, IssueRequest{PatientID: "p-1", TTL: time.Hour}, medico)
	require.NoError(t, err)

	mr.FastForward(time.Hour + time.Second)
	now = now.Add(time.Hour + time.Second)
	v, err := svc.Validate(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, v.Reason)

	// Revoking an expired token leaves the key's retention untouched.
	require.NoError(t, svc.Revoke(ctx, tok.Token))
	v, err = svc.Validate(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, v.Reason)

	mr.FastForward(24 * time.Hour)
	now = now.Add(24 * time.Hour)
	v, err = svc.Validate(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, v.Reason)
}

func TestRedisTokenStore_RevokedKeepsRetention(t *testing.T) {
	mr, store := newRedisTokenStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dir := &fakeDirectory{patients: map[string]string{"p-1": "org-1"}}
	svc := NewService(ServiceDeps{Store: store, Patients: dir, Now: func() time.Time { return now }}, Options{Retention: 24 * time.Hour})
	ctx := context.Background()

	tok, err := svc.Issue(ctx, IssueRequest{PatientID: "p-1", TTL: 2 * time.Hour}, medico)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	mr.FastForward(time.Hour)
	require.NoError(t, svc.Revoke(ctx, tok.Token))
	assert.Equal(t, 25*time.Hour, mr.TTL(tokenKeyPrefix+Digest(tok.Token)))

	now = now.Add(2 * time.Hour)
	mr.FastForward(2 * time.Hour)
	v, err := svc.Validate(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, ReasonRevoked, v.Reason)
}

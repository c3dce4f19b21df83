package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/care-access/internal/domain"
)

// Sessions opens and closes sessions for login and logout flows.
type Sessions struct {
	store SessionStore
	codec *SessionCodec
	ttl   time.Duration
	now   func() time.Time
}

// NewSessions builds the lifecycle helper.
func NewSessions(store SessionStore, codec *SessionCodec, ttl time.Duration) *Sessions {
	return &Sessions{store: store, codec: codec, ttl: ttl, now: time.Now}
}

// Open stores a session for identity and writes its credential.
func (s *Sessions) Open(ctx context.Context, creds CredentialStore, identity domain.Identity) (*domain.Session, error) {
	names, ok := CredentialsFor(identity.Domain())
	if !ok {
		return nil, fmt.Errorf("no credential names for domain %q", identity.Domain())
	}

	now := s.now()
	sess := &domain.Session{
		Token:     uuid.NewString(),
		Domain:    identity.Domain(),
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	signed, err := s.codec.Sign(sess)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	creds.Set(names.Cookie, signed, s.ttl)
	return sess, nil
}

// Close destroys the session behind the domain credential, if any, and clears the cookie.
func (s *Sessions) Close(ctx context.Context, creds CredentialStore, d domain.Domain) error {
	names, ok := CredentialsFor(d)
	if !ok {
		return fmt.Errorf("no credential names for domain %q", d)
	}
	defer creds.Set(names.Cookie, "", 0)

	raw := readCredential(creds, names)
	if raw == "" {
		return nil
	}
	claims, err := s.codec.Parse(raw)
	if err != nil || claims.Domain != d {
		return nil
	}
	return s.store.Delete(ctx, claims.SessionID)
}

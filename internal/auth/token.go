package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/care-access/internal/domain"
)

// SessionCodec signs and verifies the session credential carried in cookies.
// The credential only names a session; the identity lives in the session store.
type SessionCodec struct {
	secret []byte
	now    func() time.Time
}

// NewSessionCodec builds a codec over an HS256 secret.
func NewSessionCodec(secret string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret), now: time.Now}
}

// SessionClaims describes the credential payload.
type SessionClaims struct {
	SessionID string        `json:"sid"`
	Domain    domain.Domain `json:"dom"`
	jwt.RegisteredClaims
}

var errEmptySecret = errors.New("session secret not configured")

// Sign produces the credential for a stored session.
func (sc *SessionCodec) Sign(s *domain.Session) (string, error) {
	if len(sc.secret) == 0 {
		return "", errEmptySecret
	}
	if s == nil || s.Identity == nil {
		return "", fmt.Errorf("%w: missing identity", domain.ErrMalformedSession)
	}
	claims := &SessionClaims{
		SessionID: s.Token,
		Domain:    s.Domain,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Identity.SubjectID(),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sc.secret)
}

// Parse validates signature and expiry and returns the claims.
func (sc *SessionCodec) Parse(raw string) (*SessionClaims, error) {
	if len(sc.secret) == 0 {
		return nil, errEmptySecret
	}
	parsed, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return sc.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sc.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid session claims")
	}
	return claims, nil
}

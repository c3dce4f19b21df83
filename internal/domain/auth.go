package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Domain names the credential realm a request authenticates against.
type Domain string

const (
	DomainStaff   Domain = "staff"
	DomainPatient Domain = "patient"
	DomainNurse   Domain = "nurse"
	DomainAdmin   Domain = "admin"
)

// Domains lists every session-backed credential realm.
var Domains = []Domain{DomainStaff, DomainPatient, DomainNurse, DomainAdmin}

// Identity is the resolved principal behind a request.
type Identity interface {
	Domain() Domain
	Role() Role
	SubjectID() string
}

// Session binds an opaque session id to exactly one identity.
type Session struct {
	Token     string
	Domain    Domain
	Identity  Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type sessionRecord struct {
	Domain    Domain          `json:"domain"`
	Identity  json.RawMessage `json:"identity"`
	IssuedAt  time.Time       `json:"issued_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// ErrMalformedSession is returned when a stored session cannot be decoded.
var ErrMalformedSession = errors.New("malformed session record")

// MarshalSession encodes a session for storage. The token is the storage key and is not embedded.
func MarshalSession(s *Session) ([]byte, error) {
	if s.Identity == nil {
		return nil, fmt.Errorf("%w: missing identity", ErrMalformedSession)
	}
	if s.Identity.Domain() != s.Domain {
		return nil, fmt.Errorf("%w: %s identity in %s session", ErrMalformedSession, s.Identity.Domain(), s.Domain)
	}
	payload, err := json.Marshal(s.Identity)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sessionRecord{
		Domain:    s.Domain,
		Identity:  payload,
		IssuedAt:  s.IssuedAt,
		ExpiresAt: s.ExpiresAt,
	})
}

// UnmarshalSession decodes a stored session, rejecting payloads whose identity does not fit the domain.
func UnmarshalSession(token string, raw []byte) (*Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	identity, err := decodeIdentity(rec.Domain, rec.Identity)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		Domain:    rec.Domain,
		Identity:  identity,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func decodeIdentity(d Domain, payload json.RawMessage) (Identity, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty identity", ErrMalformedSession)
	}
	switch d {
	case DomainStaff:
		var id StaffIdentity
		if err := json.Unmarshal(payload, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
		}
		if id.UserID == "" || !id.StaffRole.IsStaffRole() {
			return nil, fmt.Errorf("%w: incomplete staff identity", ErrMalformedSession)
		}
		return id, nil
	case DomainPatient:
		var id PatientIdentity
		if err := json.Unmarshal(payload, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
		}
		if id.PatientID == "" {
			return nil, fmt.Errorf("%w: incomplete patient identity", ErrMalformedSession)
		}
		return id, nil
	case DomainNurse:
		var id NurseIdentity
		if err := json.Unmarshal(payload, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
		}
		if id.UserID == "" || (id.NurseType != NurseAffiliated && id.NurseType != NurseIndependent) {
			return nil, fmt.Errorf("%w: incomplete nurse identity", ErrMalformedSession)
		}
		return id, nil
	case DomainAdmin:
		var id AdminIdentity
		if err := json.Unmarshal(payload, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
		}
		if id.AdminID == "" {
			return nil, fmt.Errorf("%w: incomplete admin identity", ErrMalformedSession)
		}
		return id, nil
	default:
		return nil, fmt.Errorf("%w: unknown domain %q", ErrMalformedSession, d)
	}
}

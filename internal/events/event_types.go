package events

import (
	"time"

	"github.com/spec-kit/care-access/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEmergencyTokenIssued  EventType = "emergency_token_issued"
	EventEmergencyTokenRevoked EventType = "emergency_token_revoked"
	EventEmergencyAccessed     EventType = "emergency_access_granted"
	EventEmergencyAccessDenied EventType = "emergency_access_denied"
)

// Actor encapsulates actor metadata for an event. Anonymous emergency viewers have no subject.
type Actor struct {
	Domain    domain.Domain `json:"domain,omitempty"`
	SubjectID string        `json:"subject_id,omitempty"`
	RemoteIP  string        `json:"remote_ip,omitempty"`
}

// Event represents an audit-relevant occurrence.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	PatientID string      `json:"patient_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	TokenDigest string                  `json:"token_digest"`
	Scope       []domain.EmergencyField `json:"scope"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

// TokenRevokedPayload payload.
type TokenRevokedPayload struct {
	TokenDigest string `json:"token_digest"`
}

// AccessPayload payload for emergency link views. Reason is set on denials only.
type AccessPayload struct {
	TokenDigest string `json:"token_digest"`
	Reason      string `json:"reason,omitempty"`
}

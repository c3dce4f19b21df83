package dto

import (
	"time"

	"github.com/spec-kit/care-access/internal/domain"
)

// IssueEmergencyTokenRequest payload. Omitted ttl_minutes uses the default lifetime;
// omitted fields grants every critical field.
type IssueEmergencyTokenRequest struct {
	PatientID  string                  `json:"patient_id"`
	TTLMinutes int                     `json:"ttl_minutes"`
	Fields     []domain.EmergencyField `json:"fields"`
}

// IssuedEmergencyTokenResponse is returned once; the raw token is not retrievable later.
type IssuedEmergencyTokenResponse struct {
	Token     string                  `json:"token"`
	URL       string                  `json:"url"`
	PatientID string                  `json:"patient_id"`
	Scope     []domain.EmergencyField `json:"scope"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// EmergencyTokenStatusResponse describes a stored token without its raw value.
type EmergencyTokenStatusResponse struct {
	PatientID string                  `json:"patient_id"`
	Scope     []domain.EmergencyField `json:"scope"`
	IssuedBy  string                  `json:"issued_by"`
	IssuedAt  time.Time               `json:"issued_at"`
	ExpiresAt time.Time               `json:"expires_at"`
	Status    domain.TokenStatus      `json:"status"`
	RevokedAt *time.Time              `json:"revoked_at,omitempty"`
}

// NewEmergencyTokenStatus maps a stored token.
func NewEmergencyTokenStatus(t *domain.EmergencyToken, status domain.TokenStatus) EmergencyTokenStatusResponse {
	return EmergencyTokenStatusResponse{
		PatientID: t.PatientID,
		Scope:     t.Scope,
		IssuedBy:  t.IssuedBy,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
		Status:    status,
		RevokedAt: t.RevokedAt,
	}
}

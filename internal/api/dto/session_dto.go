package dto

import (
	"github.com/spec-kit/care-access/internal/auth"
	"github.com/spec-kit/care-access/internal/domain"
)

// ScopeResponse is the tenant scope of the caller.
type ScopeResponse struct {
	Kind           auth.ScopeKind `json:"kind"`
	OrganizationID string         `json:"organization_id,omitempty"`
}

// SessionResponse answers "who am I" for a resolved principal.
type SessionResponse struct {
	Domain    domain.Domain   `json:"domain"`
	Role      domain.Role     `json:"role"`
	SubjectID string          `json:"subject_id"`
	Identity  domain.Identity `json:"identity"`
	Scope     ScopeResponse   `json:"scope"`
}

// NewSessionResponse maps a principal.
func NewSessionResponse(p *auth.Principal) SessionResponse {
	return SessionResponse{
		Domain:    p.Identity.Domain(),
		Role:      p.Identity.Role(),
		SubjectID: p.Identity.SubjectID(),
		Identity:  p.Identity,
		Scope: ScopeResponse{
			Kind:           p.Scope.Kind,
			OrganizationID: p.Scope.OrganizationID,
		},
	}
}

package auth

import (
	"fmt"
	"net/http"

	"github.com/spec-kit/care-access/internal/domain"
	apperrors "github.com/spec-kit/care-access/pkg/util"
)

// ScopeKind tells downstream data access which key bounds it.
type ScopeKind string

const (
	// ScopeOrganization bounds access to one organization.
	ScopeOrganization ScopeKind = "organization"
	// ScopeIndependent is tenant-less; access keys on SubjectID.
	ScopeIndependent ScopeKind = "independent"
	// ScopePatient limits access to the patient's own records.
	ScopePatient ScopeKind = "patient"
	// ScopePlatform is the cross-tenant analytics surface.
	ScopePlatform ScopeKind = "platform"
)

// TenantScope is the key downstream queries must filter on.
type TenantScope struct {
	Kind           ScopeKind
	OrganizationID string
	SubjectID      string
}

// Organization returns the organization id, or false for scopes that carry none.
func (s TenantScope) Organization() (string, bool) {
	if s.Kind != ScopeOrganization || s.OrganizationID == "" {
		return "", false
	}
	return s.OrganizationID, true
}

// TenantIntegrityError reports an identity missing the organization its kind requires.
type TenantIntegrityError struct {
	Domain    domain.Domain
	SubjectID string
	Reason    string
}

func (e *TenantIntegrityError) Error() string {
	return fmt.Sprintf("tenant integrity: %s identity %q: %s", e.Domain, e.SubjectID, e.Reason)
}

func (e *TenantIntegrityError) ErrorCode() string { return apperrors.CodeTenantIntegrity }
func (e *TenantIntegrityError) HTTPStatus() int   { return http.StatusForbidden }

// ErrUnauthenticated is returned when a scope is requested without an identity.
var ErrUnauthenticated = apperrors.NewUnauthenticated()

// Scope derives the tenant scope of identity. Only independent nurses are
// tenant-less; any other identity that should carry an organization but does
// not is a *TenantIntegrityError.
func Scope(identity domain.Identity) (TenantScope, error) {
	switch id := identity.(type) {
	case nil:
		return TenantScope{}, ErrUnauthenticated
	case domain.StaffIdentity:
		if id.OrganizationID == "" {
			return TenantScope{}, integrityError(id, "staff identity without organization")
		}
		return TenantScope{Kind: ScopeOrganization, OrganizationID: id.OrganizationID, SubjectID: id.UserID}, nil
	case domain.NurseIdentity:
		switch id.NurseType {
		case domain.NurseIndependent:
			if id.OrganizationID != "" {
				return TenantScope{}, integrityError(id, "independent nurse bound to an organization")
			}
			return TenantScope{Kind: ScopeIndependent, SubjectID: id.UserID}, nil
		case domain.NurseAffiliated:
			if id.OrganizationID == "" {
				return TenantScope{}, integrityError(id, "affiliated nurse without organization")
			}
			return TenantScope{Kind: ScopeOrganization, OrganizationID: id.OrganizationID, SubjectID: id.UserID}, nil
		default:
			return TenantScope{}, integrityError(id, "unknown nurse type")
		}
	case domain.PatientIdentity:
		return TenantScope{Kind: ScopePatient, SubjectID: id.PatientID}, nil
	case domain.AdminIdentity:
		return TenantScope{Kind: ScopePlatform, SubjectID: id.AdminID}, nil
	default:
		return TenantScope{}, integrityError(identity, "unsupported identity kind")
	}
}

func integrityError(id domain.Identity, reason string) *TenantIntegrityError {
	return &TenantIntegrityError{Domain: id.Domain(), SubjectID: id.SubjectID(), Reason: reason}
}

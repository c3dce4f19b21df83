package auth

import "github.com/spec-kit/care-access/internal/domain"

// Policy declares who may enter a protected scope: the credential domains
// tried in order, and the roles allowed once resolved.
type Policy struct {
	Name    string
	Domains []domain.Domain
	Allowed RoleSet
}

var (
	PolicyStaffPortal = Policy{
		Name:    "staff_portal",
		Domains: []domain.Domain{domain.DomainStaff},
		Allowed: Roles(domain.RoleAdmin, domain.RoleMedico, domain.RoleEnfermero, domain.RoleRecepcionista),
	}
	PolicyPatientPortal = Policy{
		Name:    "patient_portal",
		Domains: []domain.Domain{domain.DomainPatient},
		Allowed: Roles(domain.RolePaciente),
	}
	PolicyNursePortal = Policy{
		Name:    "nurse_portal",
		Domains: []domain.Domain{domain.DomainNurse},
		Allowed: Roles(domain.RoleEnfermero),
	}
	PolicyAnalytics = Policy{
		Name:    "analytics",
		Domains: []domain.Domain{domain.DomainAdmin},
		Allowed: Roles(domain.RoleAnalyticsAdmin),
	}
	// Reception staff cannot hand out access to clinical data.
	PolicyEmergencyTokens = Policy{
		Name:    "emergency_tokens",
		Domains: []domain.Domain{domain.DomainStaff, domain.DomainNurse},
		Allowed: Roles(domain.RoleAdmin, domain.RoleMedico, domain.RoleEnfermero),
	}
)

package domain

import "fmt"

// Role enumerates the access roles known to the platform.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleMedico         Role = "MEDICO"
	RoleEnfermero      Role = "ENFERMERO"
	RoleRecepcionista  Role = "RECEPCIONISTA"
	RolePaciente       Role = "PACIENTE"
	RoleAnalyticsAdmin Role = "ANALYTICS_ADMIN"
)

var staffRoles = map[Role]struct{}{
	RoleAdmin:         {},
	RoleMedico:        {},
	RoleEnfermero:     {},
	RoleRecepcionista: {},
}

// IsStaffRole reports whether an organization member may hold the role.
func (r Role) IsStaffRole() bool {
	_, ok := staffRoles[r]
	return ok
}

// ParseStaffRole converts stored text into a staff role.
func ParseStaffRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.IsStaffRole() {
		return "", fmt.Errorf("unknown staff role %q", raw)
	}
	return role, nil
}

// StaffIdentity is an organization member acting under a role.
type StaffIdentity struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	StaffRole      Role   `json:"role"`
}

func (s StaffIdentity) Domain() Domain    { return DomainStaff }
func (s StaffIdentity) Role() Role        { return s.StaffRole }
func (s StaffIdentity) SubjectID() string { return s.UserID }

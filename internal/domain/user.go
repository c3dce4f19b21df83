package domain

// PatientIdentity is a patient signed in to their own portal.
type PatientIdentity struct {
	PatientID string `json:"patient_id"`
}

func (p PatientIdentity) Domain() Domain    { return DomainPatient }
func (p PatientIdentity) Role() Role        { return RolePaciente }
func (p PatientIdentity) SubjectID() string { return p.PatientID }

// NurseType distinguishes organization-affiliated nurses from independent ones.
type NurseType string

const (
	NurseAffiliated  NurseType = "affiliated"
	NurseIndependent NurseType = "independent"
)

// NurseIdentity is a nurse signed in through the nurse portal.
// OrganizationID is set for affiliated nurses only.
type NurseIdentity struct {
	UserID         string    `json:"user_id"`
	NurseType      NurseType `json:"nurse_type"`
	OrganizationID string    `json:"organization_id,omitempty"`
}

func (n NurseIdentity) Domain() Domain    { return DomainNurse }
func (n NurseIdentity) Role() Role        { return RoleEnfermero }
func (n NurseIdentity) SubjectID() string { return n.UserID }

// AdminIdentity is an operator of the analytics surface.
type AdminIdentity struct {
	AdminID  string `json:"admin_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (a AdminIdentity) Domain() Domain    { return DomainAdmin }
func (a AdminIdentity) Role() Role        { return RoleAnalyticsAdmin }
func (a AdminIdentity) SubjectID() string { return a.AdminID }

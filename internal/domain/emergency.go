package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrPatientNotFound is returned by data stores for unknown patient ids.
var ErrPatientNotFound = errors.New("patient not found")

// EmergencyField names one piece of critical data an emergency link may expose.
type EmergencyField string

const (
	FieldAllergies         EmergencyField = "allergies"
	FieldBloodType         EmergencyField = "blood_type"
	FieldEmergencyContacts EmergencyField = "emergency_contacts"
	FieldActiveMedications EmergencyField = "active_medications"
)

// CriticalFields is the full set an emergency link can be scoped to.
var CriticalFields = []EmergencyField{
	FieldAllergies,
	FieldBloodType,
	FieldEmergencyContacts,
	FieldActiveMedications,
}

// NormalizeFields deduplicates and validates a requested scope. Empty input means every critical field.
func NormalizeFields(fields []EmergencyField) ([]EmergencyField, error) {
	if len(fields) == 0 {
		return append([]EmergencyField(nil), CriticalFields...), nil
	}
	requested := make(map[EmergencyField]struct{}, len(fields))
	for _, f := range fields {
		if !f.valid() {
			return nil, fmt.Errorf("unknown emergency field %q", f)
		}
		requested[f] = struct{}{}
	}
	out := make([]EmergencyField, 0, len(requested))
	for _, f := range CriticalFields {
		if _, ok := requested[f]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (f EmergencyField) valid() bool {
	for _, known := range CriticalFields {
		if f == known {
			return true
		}
	}
	return false
}

// EmergencyToken is an anonymous, time-boxed grant over one patient's critical data.
// Token holds the raw value only when freshly issued; stores keep a digest.
type EmergencyToken struct {
	Token     string           `json:"-"`
	PatientID string           `json:"patient_id"`
	Scope     []EmergencyField `json:"scope"`
	IssuedBy  string           `json:"issued_by"`
	IssuedAt  time.Time        `json:"issued_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	Revoked   bool             `json:"revoked"`
	RevokedAt *time.Time       `json:"revoked_at,omitempty"`
}

// Expired is derived from the clock, never stored.
func (t *EmergencyToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenStatus is the lifecycle state of an emergency token at a given instant.
type TokenStatus string

const (
	TokenActive  TokenStatus = "active"
	TokenExpired TokenStatus = "expired"
	TokenRevoked TokenStatus = "revoked"
)

// Status reports the token state. Revocation wins over expiry.
func (t *EmergencyToken) Status(now time.Time) TokenStatus {
	switch {
	case t.Revoked:
		return TokenRevoked
	case t.Expired(now):
		return TokenExpired
	default:
		return TokenActive
	}
}

// EmergencyContact is a person to call on the patient's behalf.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone"`
}

// Medication is an active prescription.
type Medication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage,omitempty"`
}

// CriticalData is everything an emergency responder could be shown about a patient.
type CriticalData struct {
	PatientID         string
	Allergies         []string
	BloodType         string
	EmergencyContacts []EmergencyContact
	ActiveMedications []Medication
}

// EmergencyView is the public emergency payload; unscoped fields stay nil and are omitted.
type EmergencyView struct {
	Allergies         *[]string           `json:"allergies,omitempty"`
	BloodType         *string             `json:"blood_type,omitempty"`
	EmergencyContacts *[]EmergencyContact `json:"emergency_contacts,omitempty"`
	ActiveMedications *[]Medication       `json:"active_medications,omitempty"`
}

// Restrict projects the data onto the granted scope.
func (d *CriticalData) Restrict(scope []EmergencyField) EmergencyView {
	var view EmergencyView
	for _, f := range scope {
		switch f {
		case FieldAllergies:
			allergies := append([]string{}, d.Allergies...)
			view.Allergies = &allergies
		case FieldBloodType:
			bt := d.BloodType
			view.BloodType = &bt
		case FieldEmergencyContacts:
			contacts := append([]EmergencyContact{}, d.EmergencyContacts...)
			view.EmergencyContacts = &contacts
		case FieldActiveMedications:
			meds := append([]Medication{}, d.ActiveMedications...)
			view.ActiveMedications = &meds
		}
	}
	return view
}

package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip_EachDomain(t *testing.T) {
	issued := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	identities := []Identity{
		StaffIdentity{UserID: "u-1", OrganizationID: "org-1", StaffRole: RoleMedico},
		PatientIdentity{PatientID: "p-1"},
		NurseIdentity{UserID: "n-1", NurseType: NurseIndependent},
		AdminIdentity{AdminID: "a-1", Username: "ops", Email: "ops@example.com"},
	}

	for _, id := range identities {
		t.Run(string(id.Domain()), func(t *testing.T) {
			raw, err := MarshalSession(&Session{
				Domain:    id.Domain(),
				Identity:  id,
				IssuedAt:  issued,
				ExpiresAt: issued.Add(time.Hour),
			})
			require.NoError(t, err)

			got, err := UnmarshalSession("sid-1", raw)
			require.NoError(t, err)
			assert.Equal(t, "sid-1", got.Token)
			assert.Equal(t, id, got.Identity)
			assert.True(t, got.ExpiresAt.Equal(issued.Add(time.Hour)))
		})
	}
}

func TestMarshalSession_RejectsDomainMismatch(t *testing.T) {
	_, err := MarshalSession(&Session{
		Domain:   DomainAdmin,
		Identity: PatientIdentity{PatientID: "p-1"},
	})
	require.ErrorIs(t, err, ErrMalformedSession)
}

func TestUnmarshalSession_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `{{{`,
		"unknown domain":    `{"domain":"guest","identity":{"id":"x"}}`,
		"missing identity":  `{"domain":"staff"}`,
		"staff bad role":    `{"domain":"staff","identity":{"user_id":"u","organization_id":"o","role":"ROOT"}}`,
		"patient no id":     `{"domain":"patient","identity":{}}`,
		"nurse bad type":    `{"domain":"nurse","identity":{"user_id":"n","nurse_type":"travel"}}`,
		"identity is array": `{"domain":"admin","identity":[1,2]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalSession("sid", []byte(raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedSession))
		})
	}
}

func TestUnmarshalSession_StaffWithoutOrganizationDecodes(t *testing.T) {
	// Tenant integrity is judged by the scope enforcer, not by decoding.
	raw := `{"domain":"staff","identity":{"user_id":"u","role":"ADMIN"}}`
	s, err := UnmarshalSession("sid", []byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "", s.Identity.(StaffIdentity).OrganizationID)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now}
	assert.True(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(-time.Second)))
}

func TestParseStaffRole(t *testing.T) {
	role, err := ParseStaffRole("MEDICO")
	require.NoError(t, err)
	assert.Equal(t, RoleMedico, role)

	_, err = ParseStaffRole("PACIENTE")
	require.Error(t, err)
}

func TestNormalizeFields(t *testing.T) {
	all, err := NormalizeFields(nil)
	require.NoError(t, err)
	assert.Equal(t, CriticalFields, all)

	got, err := NormalizeFields([]EmergencyField{FieldActiveMedications, FieldAllergies, FieldAllergies})
	require.NoError(t, err)
	assert.Equal(t, []EmergencyField{FieldAllergies, FieldActiveMedications}, got)

	_, err = NormalizeFields([]EmergencyField{"ssn"})
	require.Error(t, err)
}

func TestCriticalDataRestrict(t *testing.T) {
	data := CriticalData{
		PatientID:         "p-1",
		Allergies:         []string{"penicillin"},
		BloodType:         "O-",
		EmergencyContacts: []EmergencyContact{{Name: "Ana", Phone: "555-0100"}},
	}

	view := data.Restrict([]EmergencyField{FieldBloodType, FieldActiveMedications})
	raw, err := json.Marshal(view)
	require.NoError(t, err)

	assert.JSONEq(t, `{"blood_type":"O-","active_medications":[]}`, string(raw))
}

func TestEmergencyTokenExpired(t *testing.T) {
	now := time.Now()
	tok := EmergencyToken{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(time.Minute)))
}

func TestEmergencyTokenStatus(t *testing.T) {
	now := time.Now()
	tok := EmergencyToken{ExpiresAt: now.Add(time.Minute)}
	assert.Equal(t, TokenActive, tok.Status(now))
	assert.Equal(t, TokenExpired, tok.Status(now.Add(time.Hour)))

	tok.Revoked = true
	assert.Equal(t, TokenRevoked, tok.Status(now.Add(time.Hour)))
}

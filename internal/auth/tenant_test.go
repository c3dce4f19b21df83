package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/care-access/internal/domain"
	apperrors "github.com/spec-kit/care-access/pkg/util"
)

func TestScope_StaffCarriesOrganization(t *testing.T) {
	scope, err := Scope(domain.StaffIdentity{UserID: "u-1", OrganizationID: "org-1", StaffRole: domain.RoleMedico})
	require.NoError(t, err)

	org, ok := scope.Organization()
	assert.True(t, ok)
	assert.Equal(t, "org-1", org)
	assert.Equal(t, ScopeOrganization, scope.Kind)
}

func TestScope_StaffWithoutOrganizationIsIntegrityError(t *testing.T) {
	for _, r := range []domain.Role{domain.RoleAdmin, domain.RoleMedico, domain.RoleEnfermero, domain.RoleRecepcionista} {
		_, err := Scope(domain.StaffIdentity{UserID: "u-1", StaffRole: r})

		var integrity *TenantIntegrityError
		require.True(t, errors.As(err, &integrity), "role %s", r)
		assert.Equal(t, domain.DomainStaff, integrity.Domain)
		assert.Equal(t, "u-1", integrity.SubjectID)
	}
}

func TestScope_IndependentNurseIsTenantLess(t *testing.T) {
	scope, err := Scope(domain.NurseIdentity{UserID: "n-1", NurseType: domain.NurseIndependent})
	require.NoError(t, err)

	_, ok := scope.Organization()
	assert.False(t, ok)
	assert.Equal(t, ScopeIndependent, scope.Kind)
	assert.Equal(t, "n-1", scope.SubjectID)
}

func TestScope_IndependentNurseWithOrganizationIsInconsistent(t *testing.T) {
	_, err := Scope(domain.NurseIdentity{UserID: "n-1", NurseType: domain.NurseIndependent, OrganizationID: "org-1"})
	var integrity *TenantIntegrityError
	assert.True(t, errors.As(err, &integrity))
}

func TestScope_AffiliatedNurse(t *testing.T) {
	scope, err := Scope(domain.NurseIdentity{UserID: "n-1", NurseType: domain.NurseAffiliated, OrganizationID: "org-2"})
	require.NoError(t, err)
	org, ok := scope.Organization()
	assert.True(t, ok)
	assert.Equal(t, "org-2", org)

	_, err = Scope(domain.NurseIdentity{UserID: "n-1", NurseType: domain.NurseAffiliated})
	var integrity *TenantIntegrityError
	assert.True(t, errors.As(err, &integrity))

	_, err = Scope(domain.NurseIdentity{UserID: "n-1", NurseType: "locum"})
	assert.True(t, errors.As(err, &integrity))
}

func TestScope_PatientAndAdmin(t *testing.T) {
	scope, err := Scope(domain.PatientIdentity{PatientID: "p-1"})
	require.NoError(t, err)
	assert.Equal(t, TenantScope{Kind: ScopePatient, SubjectID: "p-1"}, scope)

	scope, err = Scope(domain.AdminIdentity{AdminID: "a-1"})
	require.NoError(t, err)
	assert.Equal(t, ScopePlatform, scope.Kind)
	_, ok := scope.Organization()
	assert.False(t, ok)
}

func TestScope_NoIdentity(t *testing.T) {
	_, err := Scope(nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTenantIntegrityError_MapsToStableCode(t *testing.T) {
	_, err := Scope(domain.StaffIdentity{UserID: "u-1", StaffRole: domain.RoleAdmin})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeTenantIntegrity, de.Code)
	assert.Equal(t, 403, de.HTTPStatus)
}

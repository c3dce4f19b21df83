package auth

import (
	"time"

	"github.com/spec-kit/care-access/internal/domain"
)

// CredentialStore reads and writes named credentials on the current request,
// typically cookies with a header fallback for API clients.
type CredentialStore interface {
	Get(name string) (string, bool)
	Set(name, value string, maxAge time.Duration)
}

// DomainCredentials names where a domain's credential travels and where
// unauthenticated page requests are sent.
type DomainCredentials struct {
	Cookie    string
	Header    string
	LoginPath string
}

var domainCredentials = map[domain.Domain]DomainCredentials{
	domain.DomainStaff:   {Cookie: "staff_session", Header: "X-Staff-Session", LoginPath: "/login"},
	domain.DomainPatient: {Cookie: "patient_session", Header: "X-Patient-Session", LoginPath: "/paciente/login"},
	domain.DomainNurse:   {Cookie: "nurse_session", Header: "X-Nurse-Session", LoginPath: "/enfermero/login"},
	domain.DomainAdmin:   {Cookie: "admin_session", Header: "X-Admin-Session", LoginPath: "/admin/login"},
}

// CredentialsFor returns the credential names of a domain.
func CredentialsFor(d domain.Domain) (DomainCredentials, bool) {
	names, ok := domainCredentials[d]
	return names, ok
}

func readCredential(creds CredentialStore, names DomainCredentials) string {
	if creds == nil {
		return ""
	}
	if v, ok := creds.Get(names.Cookie); ok && v != "" {
		return v
	}
	if v, ok := creds.Get(names.Header); ok && v != "" {
		return v
	}
	return ""
}

package auth

import (
	"github.com/spec-kit/care-access/internal/domain"
)

// DenyReason is the stable reason code of a refused authorization.
type DenyReason string

const (
	DenyNotAuthenticated DenyReason = "NOT_AUTHENTICATED"
	DenyRoleNotPermitted DenyReason = "ROLE_NOT_PERMITTED"
)

// Decision is the Role Guard outcome.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Allow is the single permitting decision.
var Allow = Decision{Allowed: true}

// Deny builds a refusing decision.
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// RoleSet is an allow-list of roles.
type RoleSet map[domain.Role]struct{}

// Roles builds an allow-list.
func Roles(roles ...domain.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports whether r is allowed.
func (s RoleSet) Contains(r domain.Role) bool {
	_, ok := s[r]
	return ok
}

// Authorize checks identity against allowed. An empty allow-list permits nobody.
func Authorize(identity domain.Identity, allowed RoleSet) Decision {
	if identity == nil {
		return Deny(DenyNotAuthenticated)
	}
	if !allowed.Contains(identity.Role()) {
		return Deny(DenyRoleNotPermitted)
	}
	return Allow
}

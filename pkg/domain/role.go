package domain

import (
	"slices"
	"strings"

	dErrors "technovit/pkg/domain-errors"
)

// Role is the flat authorization role stored on a user. There is no hierarchy:
// every permission check names the roles it admits.
type Role string

const (
	RoleStudent                 Role = "student"
	RoleCoordinator             Role = "coordinator"
	RoleSuperCoordinator        Role = "super_coordinator"
	RoleRegistrationCoordinator Role = "registration_coordinator"
	RoleMerchCoordinator        Role = "merch_coordinator"
	RoleAdmin                   Role = "admin"
)

var knownRoles = []Role{
	RoleStudent,
	RoleCoordinator,
	RoleSuperCoordinator,
	RoleRegistrationCoordinator,
	RoleMerchCoordinator,
	RoleAdmin,
}

// ParseRole validates a role label.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(knownRoles, r) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
	}
	return r, nil
}

// In reports whether r is one of the given roles.
func (r Role) In(roles ...Role) bool {
	return slices.Contains(roles, r)
}

func (r Role) String() string { return string(r) }

// Package authz decides which event fields a caller may change and turns a
// raw patch body into a validated update. Pure domain logic: no I/O.
package authz

import (
	"technovit/internal/event/models"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
)

// FieldSet is a set of mutable event field names.
type FieldSet map[string]struct{}

func newFieldSet(fields ...string) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

func (s FieldSet) Has(field string) bool {
	_, ok := s[field]
	return ok
}

func (s FieldSet) without(field string) FieldSet {
	out := make(FieldSet, len(s))
	for f := range s {
		if f != field {
			out[f] = struct{}{}
		}
	}
	return out
}

var (
	ownerFields       = newFieldSet(models.AllFields...)
	coordinatorFields = ownerFields.without(models.FieldIsPinned)
)

// AllowedFields is the role table. No role inherits from another:
//   - admin, super_coordinator: every mutable field
//   - coordinator assigned to the event: every field except the pin flag
//   - anyone else: nothing
func AllowedFields(role domain.Role, assigned bool) FieldSet {
	switch {
	case role.In(domain.RoleAdmin, domain.RoleSuperCoordinator):
		return ownerFields
	case role == domain.RoleCoordinator && assigned:
		return coordinatorFields
	default:
		return FieldSet{}
	}
}

// AuthorizePatch resolves the caller's allowance on ev. Callers with no
// allowance are denied before any field is inspected.
func AuthorizePatch(caller domain.Role, userID domain.UserID, ev *models.Event) (FieldSet, error) {
	assigned := caller == domain.RoleCoordinator && ev.HasCoordinator(userID)
	allowed := AllowedFields(caller, assigned)
	if len(allowed) > 0 {
		return allowed, nil
	}
	if caller == domain.RoleCoordinator {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to edit this event")
	}
	return nil, dErrors.New(dErrors.CodeForbidden, "not authorized")
}

package service

import "strings"

// Role names asserted by the authentication boundary.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Actor is the verified caller identity handed over by the authentication middleware.
type Actor struct {
	ID   string
	Name string
	Role string
}

// Is reports whether the actor holds the given role.
func (a Actor) Is(role string) bool {
	return normalizeRole(a.Role) == role
}

// IsStaff reports whether the actor is a teacher or an admin.
func (a Actor) IsStaff() bool {
	return a.Is(RoleTeacher) || a.Is(RoleAdmin)
}

// DisplayName falls back to the identifier when no name claim was supplied.
func (a Actor) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return a.ID
}

func requireRole(actor Actor, roles ...string) error {
	if strings.TrimSpace(actor.ID) == "" {
		return ErrRoleNotPermitted
	}
	for _, role := range roles {
		if actor.Is(role) {
			return nil
		}
	}
	return ErrRoleNotPermitted
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

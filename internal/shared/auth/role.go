package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleCollaborator  Role = "collaborator"
	RoleAdministrator Role = "administrator"
)

// ParseRole accepts the canonical role names, case-insensitively.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleCustomer, RoleCollaborator, RoleAdministrator:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is one of the canonical roles, exactly spelled.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleCollaborator, RoleAdministrator:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool { return r == RoleAdministrator }

// Identity is the authenticated principal carried by a session token.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role.IsAdmin() }

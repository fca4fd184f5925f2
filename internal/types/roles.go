// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import "fmt"

// Role is the closed set of account roles. Keeping this an enumeration means
// adding a role is a compile-time-checked change everywhere roles are consulted.
type Role string

const (
	RoleUser         Role = "user"
	RoleCompanyAdmin Role = "company_admin"
	RoleSuperAdmin   Role = "super_admin"
)

// ParseRole converts a stored or user-supplied role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleCompanyAdmin, RoleSuperAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q: %w", s, ErrValidation)
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCompanyAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether the role carries an admin tier.
func (r Role) IsAdmin() bool {
	return r == RoleCompanyAdmin || r == RoleSuperAdmin
}

// Grantable reports whether the role may be granted through an invitation.
// Super admin is never grantable by invitation.
func (r Role) Grantable() bool {
	return r == RoleUser || r == RoleCompanyAdmin
}

func (r Role) String() string {
	return string(r)
}

package domain

import "slices"

// Role represents a subject role in the system.
type Role string

const (
	// RoleMaster is an administrative identity not bound to any tenant.
	RoleMaster Role = "master"

	// RoleAdmin manages a single tenant's settings, agents and data.
	RoleAdmin Role = "admin"

	// RoleAgent handles conversations on behalf of a tenant.
	RoleAgent Role = "agent"

	// RoleClient is an end user of a tenant's support portal.
	RoleClient Role = "client"
)

// ValidRoles contains all valid roles in the system.
var ValidRoles = []Role{RoleMaster, RoleAdmin, RoleAgent, RoleClient}

// IsValidRole checks if a given role is valid.
func IsValidRole(role string) bool {
	return slices.Contains(ValidRoles, Role(role))
}

// RoleBucket maps a role to its realtime fan-out bucket.
// Admins and agents share the agents bucket; clients get their own.
// Master has no bucket.
func RoleBucket(role Role) string {
	switch role {
	case RoleAdmin, RoleAgent:
		return "agents"
	case RoleClient:
		return "clients"
	default:
		return ""
	}
}

package realtime

import (
	"fmt"
	"strings"
)

// MasterGroup is the only group not qualified by a tenant. Master
// connections without an override join it and nothing else.
const MasterGroup = "master"

const groupPrefix = "tenant:"

// TenantGroup names the fan-out group covering every connection of a tenant.
func TenantGroup(tenantID string) string {
	return groupPrefix + tenantID
}

// RoleGroup names the per-role-bucket group of a tenant.
func RoleGroup(tenantID, bucket string) string {
	return fmt.Sprintf("%s%s:%s", groupPrefix, tenantID, bucket)
}

// UserGroup names the single-subject group of a tenant. Emits targeting a
// user must use this tenant-qualified form; a bare user group would let a
// subject id collide across tenants.
func UserGroup(tenantID, subjectID string) string {
	return fmt.Sprintf("%s%s:user:%s", groupPrefix, tenantID, subjectID)
}

// GroupTenant extracts the tenant id a group belongs to, empty for master.
func GroupTenant(group string) string {
	if !strings.HasPrefix(group, groupPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(group, groupPrefix)
	if idx := strings.Index(rest, ":"); idx != -1 {
		return rest[:idx]
	}
	return rest
}

// ValidEmitGroup reports whether a group name is addressable for emits:
// either the master group or a tenant-qualified group. Unqualified user
// groups are refused.
func ValidEmitGroup(group string) bool {
	if group == MasterGroup {
		return true
	}
	return strings.HasPrefix(group, groupPrefix) && GroupTenant(group) != ""
}

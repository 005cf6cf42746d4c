package domain

import "sync"

// TenantScoped is implemented by every entity whose rows belong to exactly
// one tenant. The data gateway injects and enforces the tenant id through
// this interface; entity types opt in by registering in RegisterScoped.
type TenantScoped interface {
	GetTenantID() string
	SetTenantID(id string)
}

var (
	scopedMu    sync.RWMutex
	scopedTypes = map[string]bool{}
)

// RegisterScoped marks a table name as tenant-scoped. Registration happens
// once at startup; entities not registered here are exempt from scoping
// (the Tenant table itself, master users, cross-tenant admin tables).
func RegisterScoped(tableNames ...string) {
	scopedMu.Lock()
	defer scopedMu.Unlock()
	for _, n := range tableNames {
		scopedTypes[n] = true
	}
}

// IsScopedTable reports whether a table was registered as tenant-scoped.
func IsScopedTable(tableName string) bool {
	scopedMu.RLock()
	defer scopedMu.RUnlock()
	return scopedTypes[tableName]
}

func init() {
	RegisterScoped(
		Conversation{}.TableName(),
		Message{}.TableName(),
		Attachment{}.TableName(),
	)
}

package domain

import (
	"encoding/json"
	"time"
)

type AuditEventType string

const (
	// AuditBypassEntered records every suspension of tenant scope.
	AuditBypassEntered AuditEventType = "BYPASS_ENTERED"

	// AuditLegacyTokenAccepted records acceptance of a version-1 token
	// under the migration grace policy. Drives the cutover metric.
	AuditLegacyTokenAccepted AuditEventType = "LEGACY_TOKEN_ACCEPTED"

	// AuditCrossTenantDenied records a blocked cross-tenant attempt.
	AuditCrossTenantDenied AuditEventType = "CROSS_TENANT_DENIED"

	// AuditTenantResolved records resolution telemetry: which source
	// produced the tenant for a request.
	AuditTenantResolved AuditEventType = "TENANT_RESOLVED"

	// AuditOriginBlocked records a CORS rejection.
	AuditOriginBlocked AuditEventType = "ORIGIN_BLOCKED"
)

// AuditEvent is the kernel's audit trail record. Events are published to the
// queue and indexed per tenant; events without a tenant (master activity)
// index under the reserved "master" bucket.
type AuditEvent struct {
	ID        string          `json:"id"`
	Type      AuditEventType  `json:"type"`
	TenantID  string          `json:"tenant_id,omitempty"`
	SubjectID string          `json:"subject_id,omitempty"`
	Source    string          `json:"source,omitempty"`
	CallSite  string          `json:"call_site,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

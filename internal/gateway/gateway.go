package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

// Auditor receives kernel audit events. Emission is best-effort; the
// gateway never fails an operation because the auditor did.
type Auditor interface {
	Emit(ctx context.Context, event domain.AuditEvent)
}

// Entity is what the gateway operates on: a gorm model that knows its
// table and carries a tenant id.
type Entity interface {
	schema.Tabler
	domain.TenantScoped
}

// Gateway installs tenant scope on every persistence operation for entities
// registered as tenant-scoped. Reads go to the reader connection, writes to
// the writer. Entities outside the registration table pass through
// unfiltered (the tenants table itself, master users, admin tables).
type Gateway struct {
	writer  *gorm.DB
	reader  *gorm.DB
	log     *logger.Logger
	auditor Auditor
}

func New(writer, reader *gorm.DB, log *logger.Logger, auditor Auditor) *Gateway {
	return &Gateway{writer: writer, reader: reader, log: log, auditor: auditor}
}

// Create stores the entity under the current tenant scope. A missing tenant
// id is injected from the scope; a conflicting one is rejected.
func (g *Gateway) Create(ctx context.Context, entity Entity) error {
	scoped := domain.IsScopedTable(entity.TableName())
	if scoped {
		s, ok := tenant.ScopeFrom(ctx)
		switch {
		case !ok || (s.TenantID == "" && !s.Unscoped()):
			return tenant.ErrTenantRequired
		case s.Unscoped():
			// Master-unscoped and bypass may create on behalf of any
			// tenant, but the row still needs an owner.
			if entity.GetTenantID() == "" {
				if s.TenantID != "" {
					entity.SetTenantID(s.TenantID)
				} else {
					return tenant.ErrTenantRequired
				}
			}
		case entity.GetTenantID() == "":
			entity.SetTenantID(s.TenantID)
		case entity.GetTenantID() != s.TenantID:
			g.auditDenied(ctx, entity.TableName(), entity.GetTenantID())
			return tenant.ErrCrossTenantDenied
		}
	}

	return g.writer.WithContext(ctx).Create(entity).Error
}

// First loads a single record matching the conditions within scope.
func (g *Gateway) First(ctx context.Context, dest Entity, conds map[string]any) error {
	db, err := g.scopedDB(ctx, g.reader, dest.TableName(), conds)
	if err != nil {
		return err
	}
	return db.First(dest).Error
}

// Find loads all records matching the conditions within scope. dest must be
// a pointer to a slice of a registered entity type.
func (g *Gateway) Find(ctx context.Context, tableName string, dest any, conds map[string]any, opts ...QueryOption) error {
	db, err := g.scopedDB(ctx, g.reader, tableName, conds)
	if err != nil {
		return err
	}
	for _, opt := range opts {
		db = opt(db)
	}
	return db.Table(tableName).Find(dest).Error
}

// Updates applies the update map to records matching the conditions within
// scope. Any tenant_id key in the updates is silently stripped, on a copy
// so the caller's map survives intact: updates must never transfer
// ownership.
func (g *Gateway) Updates(ctx context.Context, model Entity, conds map[string]any, updates map[string]any) (int64, error) {
	updates, found := stripTenantKeys(copyConds(updates))
	if found {
		g.log.Debugf("stripped tenant_id from update on %s", model.TableName())
	}
	if len(updates) == 0 {
		return 0, nil
	}

	db, err := g.scopedDB(ctx, g.writer, model.TableName(), conds)
	if err != nil {
		return 0, err
	}
	res := db.Model(model).Updates(updates)
	return res.RowsAffected, res.Error
}

// Delete removes records matching the conditions within scope.
func (g *Gateway) Delete(ctx context.Context, model Entity, conds map[string]any) (int64, error) {
	db, err := g.scopedDB(ctx, g.writer, model.TableName(), conds)
	if err != nil {
		return 0, err
	}
	res := db.Delete(model)
	return res.RowsAffected, res.Error
}

// Count counts records matching the conditions within scope.
func (g *Gateway) Count(ctx context.Context, model Entity, conds map[string]any) (int64, error) {
	db, err := g.scopedDB(ctx, g.reader, model.TableName(), conds)
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.Model(model).Count(&n).Error
	return n, err
}

// Aggregate runs a caller-shaped aggregation with the tenant filter
// installed as the leading condition. Conditions naming a different tenant
// fail before touching storage.
func (g *Gateway) Aggregate(ctx context.Context, model Entity, conds map[string]any, pipeline func(*gorm.DB) *gorm.DB, dest any) error {
	db, err := g.scopedDB(ctx, g.reader, model.TableName(), conds)
	if err != nil {
		return err
	}
	return pipeline(db.Model(model)).Scan(dest).Error
}

// Unscoped runs fn with tenant filtering suspended. Every entry is audited
// with its call site; bypass that fails integrity checks indicates a bug in
// an administrative path, so errors surface unchanged.
func (g *Gateway) Unscoped(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.auditor != nil {
		s, _ := tenant.ScopeFrom(ctx)
		g.auditor.Emit(ctx, domain.AuditEvent{
			ID:        uuid.NewString(),
			Type:      domain.AuditBypassEntered,
			TenantID:  s.TenantID,
			CallSite:  callSite(2),
			Timestamp: time.Now(),
		})
	}
	return tenant.RunUnscoped(ctx, fn)
}

// CloneToTenant copies the entity into the target tenant. Identity fields
// are stripped so storage assigns fresh ones, the tenant id is rewritten,
// and the create runs under the target scope. This is the only supported
// path for moving data between tenants.
func (g *Gateway) CloneToTenant(ctx context.Context, entity Entity, targetTenantID string) (Entity, error) {
	if targetTenantID == "" {
		return nil, tenant.ErrTenantRequired
	}

	clone, err := cloneStripped(entity)
	if err != nil {
		return nil, err
	}
	clone.SetTenantID(targetTenantID)

	err = g.Unscoped(ctx, func(ctx context.Context) error {
		return tenant.RunAs(ctx, targetTenantID, func(ctx context.Context) error {
			return g.Create(ctx, clone)
		})
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

// QueryOption shapes a scoped read (ordering, pagination).
type QueryOption func(*gorm.DB) *gorm.DB

func OrderBy(expr string) QueryOption {
	return func(db *gorm.DB) *gorm.DB { return db.Order(expr) }
}

func Paginate(offset, limit int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if limit > 0 {
			db = db.Limit(limit)
		}
		if offset > 0 {
			db = db.Offset(offset)
		}
		return db
	}
}

// scopedDB intersects caller conditions with the current tenant filter and
// returns a query builder with both applied.
func (g *Gateway) scopedDB(ctx context.Context, db *gorm.DB, tableName string, conds map[string]any) (*gorm.DB, error) {
	if !domain.IsScopedTable(tableName) {
		return applyConds(db.WithContext(ctx), conds), nil
	}

	s, ok := tenant.ScopeFrom(ctx)
	if !ok || (s.TenantID == "" && !s.Unscoped()) {
		return nil, tenant.ErrTenantRequired
	}

	if s.Unscoped() {
		return applyConds(db.WithContext(ctx), conds), nil
	}

	// An explicit tenant condition equal to the scope is redundant but
	// accepted; a different one is a cross-tenant attempt.
	if explicit, present := tenantCondition(conds); present {
		if explicit != s.TenantID {
			g.auditDenied(ctx, tableName, explicit)
			return nil, tenant.ErrCrossTenantDenied
		}
	}

	out := db.WithContext(ctx).Where("tenant_id = ?", s.TenantID)
	conds, _ = stripTenantKeys(copyConds(conds))
	return applyConds(out, conds), nil
}

func (g *Gateway) auditDenied(ctx context.Context, tableName, attempted string) {
	if g.auditor == nil {
		return
	}
	s, _ := tenant.ScopeFrom(ctx)
	detail, _ := json.Marshal(map[string]string{"table": tableName, "attempted_tenant": attempted})
	g.auditor.Emit(ctx, domain.AuditEvent{
		ID:        uuid.NewString(),
		Type:      domain.AuditCrossTenantDenied,
		TenantID:  s.TenantID,
		CallSite:  callSite(3),
		Detail:    detail,
		Timestamp: time.Now(),
	})
}

func applyConds(db *gorm.DB, conds map[string]any) *gorm.DB {
	if len(conds) > 0 {
		db = db.Where(conds)
	}
	return db
}

// tenantCondition extracts an explicit tenant id from caller conditions.
func tenantCondition(conds map[string]any) (string, bool) {
	for _, key := range []string{"tenant_id", "TenantID"} {
		if v, ok := conds[key]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
			return fmt.Sprintf("%v", v), true
		}
	}
	return "", false
}

func stripTenantKeys(m map[string]any) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	found := false
	for _, key := range []string{"tenant_id", "TenantID"} {
		if _, ok := m[key]; ok {
			delete(m, key)
			found = true
		}
	}
	return m, found
}

func copyConds(conds map[string]any) map[string]any {
	if conds == nil {
		return nil
	}
	out := make(map[string]any, len(conds))
	for k, v := range conds {
		out[k] = v
	}
	return out
}

func callSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

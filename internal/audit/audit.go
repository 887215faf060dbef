// Package audit appends entries to the audit trail.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ctxKey string

const originKey ctxKey = "audit_origin"

// WithOrigin attaches the client network address to the context.
func WithOrigin(ctx context.Context, addr string) context.Context {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ctx
	}
	return context.WithValue(ctx, originKey, addr)
}

// OriginFromContext returns the address set by WithOrigin, if any.
func OriginFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(originKey).(string); ok {
		return v
	}
	return ""
}

// Entry is one audit event. A nil Actor records a System action.
type Entry struct {
	Actor    *policy.Actor
	Action   models.AuditAction
	Detail   string
	Metadata map[string]any
	// OrganizationID defaults to the actor's organization.
	OrganizationID *uuid.UUID
}

type Recorder struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRecorder(db *gorm.DB, logger *slog.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Record appends e in its own statement.
func (r *Recorder) Record(ctx context.Context, e Entry) (*models.AuditLog, error) {
	return r.RecordTx(ctx, r.db, e)
}

// RecordTx appends e using tx, so the entry commits or rolls back with the
// caller's transaction.
func (r *Recorder) RecordTx(ctx context.Context, tx *gorm.DB, e Entry) (*models.AuditLog, error) {
	if e.Action == "" {
		return nil, fmt.Errorf("audit entry requires an action")
	}

	entry := &models.AuditLog{
		ActorType:      e.Actor.ActorType(),
		Action:         e.Action,
		Detail:         e.Detail,
		IPAddress:      OriginFromContext(ctx),
		OrganizationID: e.OrganizationID,
		CreatedAt:      time.Now().UTC(),
	}
	if e.Actor != nil {
		id := e.Actor.UserID
		entry.ActorID = &id
		if entry.OrganizationID == nil {
			entry.OrganizationID = e.Actor.OrganizationID
		}
	}
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encoding audit metadata: %w", err)
		}
		entry.Metadata = datatypes.JSON(data)
	}

	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.ErrorContext(ctx, "failed to write audit entry", "action", e.Action, "error", err)
		return nil, fmt.Errorf("writing audit entry: %w", err)
	}

	r.logger.DebugContext(ctx, "audit entry recorded",
		"audit_id", entry.ID,
		"action", entry.Action,
		"actor_type", entry.ActorType,
	)
	return entry, nil
}

// Filter narrows an audit listing.
type Filter struct {
	Action         models.AuditAction
	OrganizationID *uuid.UUID
	ActorID        *uuid.UUID
	Since          *time.Time
	Limit          int
	Offset         int
}

// Reader lists audit entries subject to the access policy.
type Reader struct {
	db       *gorm.DB
	enforcer *policy.Enforcer
}

func NewReader(db *gorm.DB, enforcer *policy.Enforcer) *Reader {
	return &Reader{db: db, enforcer: enforcer}
}

// List returns entries newest first. A SuperAdmin sees every organization;
// an OrgAdmin only their own.
func (r *Reader) List(ctx context.Context, actor *policy.Actor, f Filter) ([]models.AuditLog, int64, error) {
	orgID := f.OrganizationID
	if orgID == nil && !actor.IsSuperAdmin() && actor != nil {
		orgID = actor.OrganizationID
	}
	req := policy.Request{Action: policy.ActionReadAudit, OrganizationID: orgID}
	if err := r.enforcer.Authorize(ctx, actor, req); err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if orgID != nil {
		query = query.Where("organization_id = ?", *orgID)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.ActorID != nil {
		query = query.Where("actor_id = ?", *f.ActorID)
	}
	if f.Since != nil {
		query = query.Where("created_at >= ?", *f.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var entries []models.AuditLog
	if err := query.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	return entries, total, nil
}

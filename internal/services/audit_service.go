package services

import (
	"context"
	"encoding/json"

	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/pkg/logger"
	"gorm.io/gorm"
)

// RequestMeta identifies where a mutating call came from, for the audit trail
type RequestMeta struct {
	IP        string
	UserAgent string
}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Log records an audit entry
func (s *AuditService) Log(ctx context.Context, userID uint, action, entity string, entityID uint, details, ip, userAgent string) error {
	logEntry := &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	return s.db.WithContext(ctx).Create(logEntry).Error
}

// Record writes an entry with structured details. Failures are logged and
// swallowed; the audit trail never fails the ledger operation it describes.
func (s *AuditService) Record(ctx context.Context, userID uint, action, entity string, entityID uint, details map[string]any, meta RequestMeta) {
	if s == nil {
		return
	}
	var raw string
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			raw = string(b)
		}
	}
	if err := s.Log(ctx, userID, action, entity, entityID, raw, meta.IP, meta.UserAgent); err != nil {
		logger.FromContext(ctx).Warn("audit log write failed", "action", action, "entity", entity, "entity_id", entityID, "error", err)
	}
}

// List retrieves audit logs for one tenant, newest first
func (s *AuditService) List(ctx context.Context, userID uint, limit, offset int) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("user_id = ?", userID)
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := db.Order("created_at desc, id desc").Limit(limit).Offset(offset).Find(&logs)
	return logs, total, result.Error
}

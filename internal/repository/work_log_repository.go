package repository

import (
	"context"
	"time"

	"github.com/sjperalta/billtrack-api/internal/models"
	"gorm.io/gorm"
)

// WorkLogRepository defines the interface for work log data access
type WorkLogRepository interface {
	FindForTenant(ctx context.Context, userID, id uint) (*models.WorkLog, error)
	Create(ctx context.Context, log *models.WorkLog) error
	UpdateUnbilled(ctx context.Context, log *models.WorkLog) (int64, error)
	DeleteUnbilled(ctx context.Context, id uint) (int64, error)
	List(ctx context.Context, userID uint, query *ListQuery) ([]models.WorkLog, int64, error)
	FindBillable(ctx context.Context, userID uint, ids []uint) ([]models.WorkLog, error)
	ClaimForInvoice(ctx context.Context, userID, invoiceID uint, ids []uint) (int64, error)
	ReleaseFromInvoice(ctx context.Context, invoiceID uint) error
	IDsForInvoice(ctx context.Context, invoiceID uint) ([]uint, error)
	SumHours(ctx context.Context, userID uint) (float64, error)
	BillableForTenant(ctx context.Context, userID uint, projectID *uint) ([]models.WorkLog, error)
}

type workLogRepository struct {
	db *gorm.DB
}

// NewWorkLogRepository creates a new work log repository
func NewWorkLogRepository(db *gorm.DB) WorkLogRepository {
	return &workLogRepository{db: db}
}

func (r *workLogRepository) FindForTenant(ctx context.Context, userID, id uint) (*models.WorkLog, error) {
	var log models.WorkLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&log, id).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *workLogRepository) Create(ctx context.Context, log *models.WorkLog) error {
	return r.db.WithContext(ctx).Omit("Project").Create(log).Error
}

// workLogEditable are the columns an edit may touch. invoice_id is owned by
// ClaimForInvoice and ReleaseFromInvoice.
var workLogEditable = []string{"project_id", "client_id", "date", "hours", "description", "billable", "billable_amount", "updated_at"}

// UpdateUnbilled writes the editable columns of log only while it is still
// off any invoice. Zero rows affected means an invoice claimed it first.
func (r *workLogRepository) UpdateUnbilled(ctx context.Context, log *models.WorkLog) (int64, error) {
	log.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.WorkLog{}).
		Where("id = ? AND invoice_id IS NULL", log.ID).
		Select(workLogEditable).
		Updates(map[string]any{
			"project_id":      log.ProjectID,
			"client_id":       log.ClientID,
			"date":            log.Date,
			"hours":           log.Hours,
			"description":     log.Description,
			"billable":        log.Billable,
			"billable_amount": log.BillableAmount,
			"updated_at":      log.UpdatedAt,
		})
	return result.RowsAffected, result.Error
}

// DeleteUnbilled removes the log unless an invoice holds it
func (r *workLogRepository) DeleteUnbilled(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("invoice_id IS NULL").
		Delete(&models.WorkLog{}, id)
	return result.RowsAffected, result.Error
}

func (r *workLogRepository) List(ctx context.Context, userID uint, query *ListQuery) ([]models.WorkLog, int64, error) {
	var logs []models.WorkLog
	var total int64

	db := r.db.WithContext(ctx).Model(&models.WorkLog{}).Where("user_id = ?", userID)

	if projectID := query.filter("project_id"); projectID != "" {
		db = db.Where("project_id = ?", projectID)
	}
	if clientID := query.filter("client_id"); clientID != "" {
		db = db.Where("client_id = ?", clientID)
	}
	switch query.filter("invoiced") {
	case "true":
		db = db.Where("invoice_id IS NOT NULL")
	case "false":
		db = db.Where("invoice_id IS NULL")
	}
	if billable := query.filter("billable"); billable == "true" || billable == "false" {
		db = db.Where("billable = ?", billable == "true")
	}
	if start := query.filter("start_date"); start != "" {
		db = db.Where("date >= ?", start)
	}
	if end := query.filter("end_date"); end != "" {
		db = db.Where("date <= ?", end)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = query.order(db, map[string]string{
		"date":  "date",
		"hours": "hours",
	}, "date DESC, id DESC")

	if err := query.paginate(db).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// FindBillable returns the subset of ids owned by userID that are billable
// and not yet on an invoice. Ids failing any condition are simply absent.
func (r *workLogRepository) FindBillable(ctx context.Context, userID uint, ids []uint) ([]models.WorkLog, error) {
	var logs []models.WorkLog
	if len(ids) == 0 {
		return logs, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ? AND user_id = ? AND billable = ? AND invoice_id IS NULL", ids, userID, true).
		Order("date ASC, id ASC").
		Find(&logs).Error
	return logs, err
}

// ClaimForInvoice links the given logs to invoiceID, but only those still
// unclaimed. The affected row count lets the caller detect a concurrent claim.
func (r *workLogRepository) ClaimForInvoice(ctx context.Context, userID, invoiceID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.WorkLog{}).
		Where("id IN ? AND user_id = ? AND billable = ? AND invoice_id IS NULL", ids, userID, true).
		Update("invoice_id", invoiceID)
	return result.RowsAffected, result.Error
}

// ReleaseFromInvoice returns every log of invoiceID to the unbilled pool
func (r *workLogRepository) ReleaseFromInvoice(ctx context.Context, invoiceID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.WorkLog{}).
		Where("invoice_id = ?", invoiceID).
		Update("invoice_id", nil).Error
}

func (r *workLogRepository) IDsForInvoice(ctx context.Context, invoiceID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.WorkLog{}).
		Where("invoice_id = ?", invoiceID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *workLogRepository) SumHours(ctx context.Context, userID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.WorkLog{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(hours), 0)").
		Scan(&total).Error
	return total, err
}

// BillableForTenant returns every billable log of the tenant, invoiced or
// not, optionally limited to one project.
func (r *workLogRepository) BillableForTenant(ctx context.Context, userID uint, projectID *uint) ([]models.WorkLog, error) {
	var logs []models.WorkLog
	db := r.db.WithContext(ctx).Where("user_id = ? AND billable = ?", userID, true)
	if projectID != nil {
		db = db.Where("project_id = ?", *projectID)
	}
	err := db.Order("id").Find(&logs).Error
	return logs, err
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/numbering"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Invoice, error)
	FindScoped(ctx context.Context, scope Scope, id uint) (*models.Invoice, error)
	FindForUpdate(ctx context.Context, id uint) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	UpdateStatus(ctx context.Context, id uint, status ledger.Status) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Invoice, int64, error)
	ListAll(ctx context.Context, scope Scope) ([]models.Invoice, error)
	ListByClient(ctx context.Context, clientID uint) ([]models.Invoice, error)
	ListPastDue(ctx context.Context, now time.Time) ([]models.Invoice, error)
	HighestNumber(ctx context.Context) (string, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Client").
		Preload("WorkLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("work_logs.id ASC")
		})
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.withDetails(r.db.WithContext(ctx)).First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindScoped(ctx context.Context, scope Scope, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	db := scope.apply(r.db.WithContext(ctx), "invoices")
	if err := r.withDetails(db).First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindForUpdate loads the invoice row under a row lock. Must be called
// inside a transaction for the lock to mean anything.
func (r *invoiceRepository) FindForUpdate(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

func (r *invoiceRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uint, status ledger.Status) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Invoice{}, id).Error
}

// List returns invoices visible to scope, newest issue date first.
// Filters: client_id (ignored for client scope), status (stored column),
// start_date and end_date (inclusive bounds on issue_date).
func (r *invoiceRepository) List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Invoice, int64, error) {
	var invoices []models.Invoice
	var total int64

	db := scope.apply(r.db.WithContext(ctx).Model(&models.Invoice{}), "invoices")

	if clientID := query.filter("client_id"); clientID != "" && !scope.IsClient {
		db = db.Where("invoices.client_id = ?", clientID)
	}
	if status := query.filter("status"); status != "" {
		db = db.Where("invoices.status = ?", status)
	}
	if start := query.filter("start_date"); start != "" {
		db = db.Where("invoices.issue_date >= ?", start)
	}
	if end := query.filter("end_date"); end != "" {
		db = db.Where("invoices.issue_date <= ?", end)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = query.order(db, map[string]string{
		"issue_date":     "invoices.issue_date",
		"due_date":       "invoices.due_date",
		"total":          "invoices.total",
		"invoice_number": "invoices.invoice_number",
	}, "invoices.issue_date DESC, invoices.id DESC")

	if err := r.withDetails(query.paginate(db)).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// ListAll returns every invoice in scope with its client, for reporting.
func (r *invoiceRepository) ListAll(ctx context.Context, scope Scope) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := scope.apply(r.db.WithContext(ctx), "invoices").
		Preload("Client").
		Order("invoices.issue_date ASC, invoices.id ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) ListByClient(ctx context.Context, clientID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("issue_date ASC, id ASC").
		Find(&invoices).Error
	return invoices, err
}

// ListPastDue returns invoices whose due date has passed and whose stored
// status is not yet overdue. Callers decide with DerivedStatus.
func (r *invoiceRepository) ListPastDue(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date < ? AND status <> ?", now, ledger.StatusOverdue).
		Order("id").
		Find(&invoices).Error
	return invoices, err
}

// HighestNumber returns the largest INV- number in use, or "" when there is none.
// Longer numbers sort first so INV-10000 beats INV-9999.
func (r *invoiceRepository) HighestNumber(ctx context.Context) (string, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Select("invoice_number").
		Where("invoice_number LIKE ?", numbering.Prefix+"%").
		Order("LENGTH(invoice_number) DESC, invoice_number DESC").
		Take(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return invoice.InvoiceNumber, nil
}

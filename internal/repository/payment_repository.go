package repository

import (
	"context"

	"github.com/sjperalta/billtrack-api/internal/models"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	FindScoped(ctx context.Context, scope Scope, id uint) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Payment, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to string) (int64, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindScoped(ctx context.Context, scope Scope, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := scope.apply(r.db.WithContext(ctx), "payments").First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Payment{}, id).Error
}

func (r *paymentRepository) List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	db := scope.apply(r.db.WithContext(ctx).Model(&models.Payment{}), "payments")

	if invoiceID := query.filter("invoice_id"); invoiceID != "" {
		db = db.Where("invoice_id = ?", invoiceID)
	}
	if clientID := query.filter("client_id"); clientID != "" && !scope.IsClient {
		db = db.Where("client_id = ?", clientID)
	}
	if status := query.filter("status"); status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = query.order(db, map[string]string{
		"payment_date": "payment_date",
		"amount":       "amount",
	}, "payment_date DESC, id DESC")

	if err := query.paginate(db).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// UpdateStatus moves a payment from one status to another only if it is still
// in from. Zero affected rows means another request got there first.
func (r *paymentRepository) UpdateStatus(ctx context.Context, id uint, from, to string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func (r *paymentRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

package repository

import (
	"context"

	"github.com/sjperalta/billtrack-api/internal/models"
	"gorm.io/gorm"
)

// ClientRepository defines the interface for client data access
type ClientRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Client, error)
	FindForTenant(ctx context.Context, userID, id uint) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	List(ctx context.Context, userID uint, query *ListQuery) ([]models.Client, int64, error)
	UpdateBalances(ctx context.Context, id uint, outstanding, totalBilled float64) error
	AllIDs(ctx context.Context) ([]uint, error)
	CountForTenant(ctx context.Context, userID uint) (int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) FindByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) FindForTenant(ctx context.Context, userID, id uint) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&client, id).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *clientRepository) List(ctx context.Context, userID uint, query *ListQuery) ([]models.Client, int64, error) {
	var clients []models.Client
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Client{}).Where("user_id = ?", userID)

	if status := query.filter("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	if search := query.filter("search"); search != "" {
		like := "%" + search + "%"
		db = db.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) OR LOWER(company) LIKE LOWER(?)", like, like, like)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = query.order(db, map[string]string{
		"name":                "name",
		"outstanding_balance": "outstanding_balance",
		"created_at":          "created_at",
	}, "name ASC")

	if err := query.paginate(db).Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

// UpdateBalances writes the cached aggregates without touching other columns
func (r *clientRepository) UpdateBalances(ctx context.Context, id uint, outstanding, totalBilled float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"outstanding_balance": outstanding,
			"total_billed":        totalBilled,
		}).Error
}

func (r *clientRepository) AllIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Client{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *clientRepository) CountForTenant(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Client{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

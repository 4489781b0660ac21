package repository

import (
	"context"
	"time"

	"github.com/sjperalta/billtrack-api/internal/models"
	"gorm.io/gorm"
)

// ExpenseRepository defines the interface for expense data access
type ExpenseRepository interface {
	FindForTenant(ctx context.Context, userID, id uint) (*models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, userID, id uint) (int64, error)
	List(ctx context.Context, userID uint, query *ListQuery) ([]models.Expense, int64, error)
	BulkUpdateStatus(ctx context.Context, userID uint, ids []uint, status string) (int64, error)
	Find(ctx context.Context, userID uint, filter ExpenseFilter) ([]models.Expense, error)
}

// ExpenseFilter narrows the unpaginated reads that feed the reports.
// Zero values leave a dimension unrestricted.
type ExpenseFilter struct {
	ProjectID *uint
	Statuses  []string
	From      *time.Time
	To        *time.Time
}

type expenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) FindForTenant(ctx context.Context, userID, id uint) (*models.Expense, error) {
	var expense models.Expense
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Project").
		First(&expense, id).Error
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	return r.db.WithContext(ctx).Omit("Project").Create(expense).Error
}

func (r *expenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	return r.db.WithContext(ctx).Omit("Project").Save(expense).Error
}

func (r *expenseRepository) Delete(ctx context.Context, userID, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Expense{}, id)
	return result.RowsAffected, result.Error
}

func (r *expenseRepository) List(ctx context.Context, userID uint, query *ListQuery) ([]models.Expense, int64, error) {
	var expenses []models.Expense
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Expense{}).Where("user_id = ?", userID)

	if category := query.filter("category"); category != "" {
		db = db.Where("category = ?", category)
	}
	if status := query.filter("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	if projectID := query.filter("project_id"); projectID != "" {
		db = db.Where("project_id = ?", projectID)
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
		"date":     "date",
		"amount":   "amount",
		"category": "category",
	}, "date DESC, id DESC")

	if err := query.paginate(db).Find(&expenses).Error; err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

// BulkUpdateStatus sets status on every listed expense the tenant owns.
// Ids belonging to someone else are skipped, not reported.
func (r *expenseRepository) BulkUpdateStatus(ctx context.Context, userID uint, ids []uint, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Expense{}).
		Where("id IN ? AND user_id = ?", ids, userID).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

func (r *expenseRepository) Find(ctx context.Context, userID uint, filter ExpenseFilter) ([]models.Expense, error) {
	var expenses []models.Expense
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.ProjectID != nil {
		db = db.Where("project_id = ?", *filter.ProjectID)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.From != nil {
		db = db.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("date <= ?", *filter.To)
	}
	err := db.Order("date ASC, id ASC").Find(&expenses).Error
	return expenses, err
}

package repository

import (
	"context"

	"github.com/sjperalta/billtrack-api/internal/models"
	"gorm.io/gorm"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	FindForTenant(ctx context.Context, userID, id uint) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	List(ctx context.Context, userID uint, query *ListQuery) ([]models.Project, int64, error)
	CountForTenant(ctx context.Context, userID uint) (int64, error)
	AllForTenant(ctx context.Context, userID uint) ([]models.Project, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) FindForTenant(ctx context.Context, userID, id uint) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit("Client").Create(project).Error
}

func (r *projectRepository) List(ctx context.Context, userID uint, query *ListQuery) ([]models.Project, int64, error) {
	var projects []models.Project
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Project{}).Where("projects.user_id = ?", userID)

	if clientID := query.filter("client_id"); clientID != "" {
		db = db.Where("projects.client_id = ?", clientID)
	}
	if status := query.filter("status"); status != "" {
		db = db.Where("projects.status = ?", status)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = query.order(db, map[string]string{
		"name":        "projects.name",
		"hourly_rate": "projects.hourly_rate",
		"created_at":  "projects.created_at",
	}, "projects.created_at DESC")

	if err := query.paginate(db).Preload("Client").Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *projectRepository) CountForTenant(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *projectRepository) AllForTenant(ctx context.Context, userID uint) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&projects).Error
	return projects, err
}

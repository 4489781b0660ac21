package services

import (
	"context"

	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
)

// CreateClientInput is the payload for a new client
type CreateClientInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Email       string  `json:"email" validate:"omitempty,email"`
	Company     string  `json:"company" validate:"max=255"`
	Phone       string  `json:"phone" validate:"max=50"`
	Address     string  `json:"address"`
	BillingRate float64 `json:"billing_rate" validate:"gte=0"`
}

type ClientService struct {
	repo      repository.ClientRepository
	billing   *BillingService
	validator *ValidationHelper
}

func NewClientService(repo repository.ClientRepository, billing *BillingService) *ClientService {
	return &ClientService{repo: repo, billing: billing, validator: NewValidationHelper()}
}

func (s *ClientService) Get(ctx context.Context, p models.Principal, id uint) (*models.Client, error) {
	client, err := s.repo.FindForTenant(ctx, p.UserID, id)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}
	return client, nil
}

func (s *ClientService) List(ctx context.Context, p models.Principal, query *repository.ListQuery) ([]models.Client, int64, error) {
	return s.repo.List(ctx, p.UserID, query)
}

func (s *ClientService) Create(ctx context.Context, p models.Principal, in CreateClientInput) (*models.Client, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, err
	}
	client := &models.Client{
		UserID:      p.UserID,
		Name:        in.Name,
		Email:       in.Email,
		Company:     in.Company,
		Phone:       in.Phone,
		Address:     in.Address,
		BillingRate: ledger.RoundCurrency(in.BillingRate),
		Status:      models.ClientStatusActive,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// Recompute rebuilds the client's cached balances on demand
func (s *ClientService) Recompute(ctx context.Context, p models.Principal, id uint) (*models.Client, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return nil, err
	}
	if err := s.billing.RecomputeClientBalance(ctx, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, p, id)
}

// CreateProjectInput is the payload for a new project
type CreateProjectInput struct {
	ClientID    uint    `json:"client_id" validate:"required"`
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	HourlyRate  float64 `json:"hourly_rate" validate:"gte=0"`
	Budget      float64 `json:"budget" validate:"gte=0"`
	Status      string  `json:"status" validate:"omitempty,oneof=active completed on-hold"`
}

type ProjectService struct {
	repo       repository.ProjectRepository
	clientRepo repository.ClientRepository
	validator  *ValidationHelper
}

func NewProjectService(repo repository.ProjectRepository, clientRepo repository.ClientRepository) *ProjectService {
	return &ProjectService{repo: repo, clientRepo: clientRepo, validator: NewValidationHelper()}
}

func (s *ProjectService) List(ctx context.Context, p models.Principal, query *repository.ListQuery) ([]models.Project, int64, error) {
	return s.repo.List(ctx, p.UserID, query)
}

// Create adds a project. A zero hourly rate falls back to the client's billing rate.
func (s *ProjectService) Create(ctx context.Context, p models.Principal, in CreateProjectInput) (*models.Project, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.FindForTenant(ctx, p.UserID, in.ClientID)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}

	project := &models.Project{
		UserID:      p.UserID,
		ClientID:    client.ID,
		Name:        in.Name,
		Description: in.Description,
		HourlyRate:  ledger.RoundCurrency(in.HourlyRate),
		Budget:      ledger.RoundCurrency(in.Budget),
		Status:      in.Status,
	}
	if project.HourlyRate == 0 {
		project.HourlyRate = client.BillingRate
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusActive
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	project.Client = *client
	return project, nil
}

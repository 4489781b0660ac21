package services

import (
	"context"
	"time"

	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
)

// WorkLogInput creates or replaces a work log. Hours are at least a quarter hour.
type WorkLogInput struct {
	ProjectID   uint      `json:"project_id" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Hours       float64   `json:"hours" validate:"gte=0.25,lte=24"`
	Description string    `json:"description" validate:"max=4000"`
	Billable    *bool     `json:"billable"`
}

type WorkLogService struct {
	repo        repository.WorkLogRepository
	projectRepo repository.ProjectRepository
	auditSvc    *AuditService
	validator   *ValidationHelper
}

func NewWorkLogService(repo repository.WorkLogRepository, projectRepo repository.ProjectRepository, auditSvc *AuditService) *WorkLogService {
	return &WorkLogService{
		repo:        repo,
		projectRepo: projectRepo,
		auditSvc:    auditSvc,
		validator:   NewValidationHelper(),
	}
}

func (s *WorkLogService) List(ctx context.Context, p models.Principal, query *repository.ListQuery) ([]models.WorkLog, int64, error) {
	return s.repo.List(ctx, p.UserID, query)
}

// Create prices a new entry from the project's hourly rate. Billable
// defaults to true.
func (s *WorkLogService) Create(ctx context.Context, p models.Principal, in WorkLogInput, meta RequestMeta) (*models.WorkLog, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindForTenant(ctx, p.UserID, in.ProjectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}

	log := &models.WorkLog{UserID: p.UserID}
	apply(log, project, in)
	if err := s.repo.Create(ctx, log); err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, p.UserID, models.AuditActionCreate, models.AuditEntityWorkLog, log.ID, map[string]any{
		"project_id":      log.ProjectID,
		"hours":           log.Hours,
		"billable_amount": log.BillableAmount,
	}, meta)
	return log, nil
}

// Update replaces an entry. Invoiced entries are frozen.
func (s *WorkLogService) Update(ctx context.Context, p models.Principal, id uint, in WorkLogInput, meta RequestMeta) (*models.WorkLog, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, err
	}
	log, err := s.repo.FindForTenant(ctx, p.UserID, id)
	if err != nil {
		return nil, notFound(err, ErrWorkLogNotFound)
	}
	if log.IsInvoiced() {
		return nil, ErrWorkLogInvoiced
	}
	project, err := s.projectRepo.FindForTenant(ctx, p.UserID, in.ProjectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}

	apply(log, project, in)
	n, err := s.repo.UpdateUnbilled(ctx, log)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrWorkLogInvoiced
	}

	s.auditSvc.Record(ctx, p.UserID, models.AuditActionUpdate, models.AuditEntityWorkLog, log.ID, map[string]any{
		"hours":           log.Hours,
		"billable_amount": log.BillableAmount,
	}, meta)
	return log, nil
}

// Delete removes an entry that has not been invoiced
func (s *WorkLogService) Delete(ctx context.Context, p models.Principal, id uint, meta RequestMeta) error {
	log, err := s.repo.FindForTenant(ctx, p.UserID, id)
	if err != nil {
		return notFound(err, ErrWorkLogNotFound)
	}
	if log.IsInvoiced() {
		return ErrWorkLogInvoiced
	}
	n, err := s.repo.DeleteUnbilled(ctx, log.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrWorkLogInvoiced
	}
	s.auditSvc.Record(ctx, p.UserID, models.AuditActionDelete, models.AuditEntityWorkLog, log.ID, nil, meta)
	return nil
}

func apply(log *models.WorkLog, project *models.Project, in WorkLogInput) {
	billable := true
	if in.Billable != nil {
		billable = *in.Billable
	}

	log.ProjectID = project.ID
	log.ClientID = project.ClientID
	log.Date = in.Date
	log.Hours = ledger.RoundCurrency(in.Hours)
	log.Description = in.Description
	log.Billable = billable
	log.BillableAmount = 0
	if billable {
		log.BillableAmount = ledger.Multiply(log.Hours, project.HourlyRate)
	}
}

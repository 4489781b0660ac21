package services

import (
	"context"
	"time"

	"github.com/sjperalta/billtrack-api/internal/jobs"
	"github.com/sjperalta/billtrack-api/pkg/logger"
)

// Names of the recurring maintenance jobs
const (
	JobOverdueSweep     = "overdue-sweep"
	JobBalanceRecompute = "balance-recompute"
)

type JobService struct {
	worker   *jobs.Worker
	invoices *InvoiceService
	billing  *BillingService
}

func NewJobService(worker *jobs.Worker, invoices *InvoiceService, billing *BillingService) *JobService {
	return &JobService{
		worker:   worker,
		invoices: invoices,
		billing:  billing,
	}
}

// ScheduleMaintenance registers the overdue sweep and the full balance
// recompute on the worker. The sweep also runs once at startup.
func (s *JobService) ScheduleMaintenance(overdueEvery, balanceEvery time.Duration) {
	s.worker.ScheduleEveryImmediate(JobOverdueSweep, overdueEvery, s.SweepOverdue)
	s.worker.ScheduleEvery(JobBalanceRecompute, balanceEvery, s.RecomputeBalances)
	logger.Info("maintenance jobs scheduled",
		"overdue_every", overdueEvery.String(),
		"balance_every", balanceEvery.String(),
	)
}

// SweepOverdue persists overdue statuses that have become due since last write
func (s *JobService) SweepOverdue(ctx context.Context) error {
	_, err := s.invoices.SweepOverdue(ctx)
	return err
}

// RecomputeBalances rebuilds every client's cached balance
func (s *JobService) RecomputeBalances(ctx context.Context) error {
	n, err := s.billing.RecomputeAllBalances(ctx)
	logger.Info("client balances recomputed", "clients", n)
	return err
}

func (s *JobService) GetStatus() map[string]interface{} {
	stats := s.worker.GetStats()
	return map[string]interface{}{
		"active_jobs":    stats.ActiveJobs,
		"completed_jobs": stats.CompletedJobs,
		"failed_jobs":    stats.FailedJobs,
		"retried_jobs":   stats.RetriedJobs,
		"queue_length":   stats.QueueLength,
		"max_concurrent": stats.MaxConcurrent,
	}
}

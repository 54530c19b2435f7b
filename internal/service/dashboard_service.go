package service

import (
	"context"
	"fmt"
	"time"

	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/mapper"
	"github.com/planiapp/tareas-api/internal/repository"
	"go.uber.org/zap"
)

type DashboardService struct {
	taskRepo *repository.TaskRepository
	cfg      *config.DashboardConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewDashboardService(taskRepo *repository.TaskRepository, cfg *config.DashboardConfig, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		taskRepo: taskRepo,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Compute builds the dashboard as of now. Any failing aggregate fails the
// whole computation; callers render a degraded dashboard instead.
func (s *DashboardService) Compute(ctx context.Context) (*domain.DashboardDTO, error) {
	now := s.now()
	today := domain.DateOf(now)

	total, err := s.taskRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	statusCounts, err := s.taskRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	urgent, err := s.taskRepo.ListActiveByPriority(ctx, domain.TaskPriorityUrgent, s.cfg.UrgentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list urgent tasks: %w", err)
	}

	dueSoon, err := s.taskRepo.ListActiveDueBetween(ctx, today, today.AddDate(0, 0, s.cfg.DueSoonDays), s.cfg.DueSoonLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks due soon: %w", err)
	}

	categoryCounts, err := s.taskRepo.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by category: %w", err)
	}

	dashboard := &domain.DashboardDTO{
		TotalTasks:   total,
		UrgentTasks:  mapper.ToTaskSummaryDTOs(urgent, today),
		DueSoonTasks: mapper.ToTaskSummaryDTOs(dueSoon, today),
		ByCategory:   make([]domain.CategoryCountDTO, len(categoryCounts)),
		GeneratedAt:  now.UTC().Format(time.RFC3339),
	}
	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.TaskStatusPending:
			dashboard.PendingTasks = sc.Count
		case domain.TaskStatusInProgress:
			dashboard.InProgressTasks = sc.Count
		case domain.TaskStatusCompleted:
			dashboard.CompletedTasks = sc.Count
		}
	}
	for i, cc := range categoryCounts {
		dashboard.ByCategory[i] = domain.CategoryCountDTO{Category: cc.Category, Count: cc.Count}
	}
	return dashboard, nil
}

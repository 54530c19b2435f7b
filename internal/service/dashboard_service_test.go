package service

import (
	"context"
	"testing"

	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/repository"
	"github.com/planiapp/tareas-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDashboardService_Compute(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, district, locality := testutil.Geography(t, db)
	sup := testutil.Staff(t, db, "V1", "Sup", "Ervisor", domain.RoleCoordinator)
	asg := testutil.Staff(t, db, "V2", "Asi", "Gnado", domain.RoleStaff)
	today := domain.Today()

	status := func(s domain.TaskStatus) testutil.TaskOption { return func(t *domain.Task) { t.Status = s } }
	due := func(days int) testutil.TaskOption {
		return func(t *domain.Task) { t.ExpectedEndDate = today.AddDate(0, 0, days) }
	}
	urgent := func(t *domain.Task) { t.Priority = domain.TaskPriorityUrgent }
	technical := func(t *domain.Task) { t.Category = domain.TaskCategoryTechnical }
	hidden := func(t *domain.Task) { t.Visible = false }

	testutil.Task(t, db, district, locality, sup, asg, urgent, due(3))
	testutil.Task(t, db, district, locality, sup, asg, urgent, status(domain.TaskStatusCompleted), due(1))
	testutil.Task(t, db, district, locality, sup, asg, status(domain.TaskStatusInProgress), due(0), technical)
	testutil.Task(t, db, district, locality, sup, asg, due(7), technical, hidden)
	testutil.Task(t, db, district, locality, sup, asg, due(8))
	testutil.Task(t, db, district, locality, sup, asg, status(domain.TaskStatusRejected), due(2))

	svc := NewDashboardService(repository.NewTaskRepository(db), &config.DashboardConfig{UrgentLimit: 5, DueSoonLimit: 5, DueSoonDays: 7}, zap.NewNop())
	dashboard, err := svc.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(6), dashboard.TotalTasks)
	assert.Equal(t, int64(3), dashboard.PendingTasks)
	assert.Equal(t, int64(1), dashboard.InProgressTasks)
	assert.Equal(t, int64(1), dashboard.CompletedTasks)
	assert.Len(t, dashboard.UrgentTasks, 1)

	require.Len(t, dashboard.DueSoonTasks, 3)
	assert.Equal(t, today.Format(domain.DateLayout), dashboard.DueSoonTasks[0].ExpectedEndDate)

	require.Len(t, dashboard.ByCategory, 2)
	assert.Equal(t, domain.TaskCategoryOperational, dashboard.ByCategory[0].Category)
	assert.Equal(t, int64(4), dashboard.ByCategory[0].Count)
	assert.NotEmpty(t, dashboard.GeneratedAt)
}

func TestDashboardService_Compute_Empty(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewDashboardService(repository.NewTaskRepository(db), &config.DashboardConfig{UrgentLimit: 5, DueSoonLimit: 5, DueSoonDays: 7}, zap.NewNop())

	dashboard, err := svc.Compute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dashboard.TotalTasks)
	assert.Empty(t, dashboard.UrgentTasks)
	assert.Empty(t, dashboard.ByCategory)
}

func TestDashboardService_Compute_FailsAsAWhole(t *testing.T) {
	db := testutil.NewTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	svc := NewDashboardService(repository.NewTaskRepository(db), &config.DashboardConfig{UrgentLimit: 5, DueSoonLimit: 5, DueSoonDays: 7}, zap.NewNop())
	dashboard, err := svc.Compute(context.Background())
	assert.Error(t, err)
	assert.Nil(t, dashboard)
}

func TestDashboardService_Compute_ListLimits(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, district, locality := testutil.Geography(t, db)
	sup := testutil.Staff(t, db, "V1", "Sup", "Ervisor", domain.RoleCoordinator)
	asg := testutil.Staff(t, db, "V2", "Asi", "Gnado", domain.RoleStaff)
	today := domain.Today()

	for i := 0; i < 3; i++ {
		testutil.Task(t, db, district, locality, sup, asg, func(t *domain.Task) {
			t.Priority = domain.TaskPriorityUrgent
			t.ExpectedEndDate = today.AddDate(0, 0, 2)
		})
	}

	svc := NewDashboardService(repository.NewTaskRepository(db), &config.DashboardConfig{UrgentLimit: 1, DueSoonLimit: 2, DueSoonDays: 7}, zap.NewNop())
	dashboard, err := svc.Compute(context.Background())
	require.NoError(t, err)
	assert.Len(t, dashboard.UrgentTasks, 1)
	assert.Len(t, dashboard.DueSoonTasks, 2)
}

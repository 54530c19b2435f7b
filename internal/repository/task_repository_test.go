package repository

import (
	"context"
	"testing"
	"time"

	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRepository_DashboardQueries(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	_, district, locality := testutil.Geography(t, db)
	sup := testutil.Staff(t, db, "1", "Sup", "Ervisor", domain.RoleCoordinator)
	asg := testutil.Staff(t, db, "2", "Asi", "Gnado", domain.RoleStaff)
	today := domain.Today()

	urgent := func(t *domain.Task) { t.Priority = domain.TaskPriorityUrgent }
	status := func(s domain.TaskStatus) testutil.TaskOption { return func(t *domain.Task) { t.Status = s } }
	due := func(days int) testutil.TaskOption {
		return func(t *domain.Task) { t.ExpectedEndDate = today.AddDate(0, 0, days) }
	}
	category := func(c domain.TaskCategory) testutil.TaskOption { return func(t *domain.Task) { t.Category = c } }

	testutil.Task(t, db, district, locality, sup, asg, urgent, due(3))
	testutil.Task(t, db, district, locality, sup, asg, urgent, status(domain.TaskStatusCompleted), due(1))
	testutil.Task(t, db, district, locality, sup, asg, status(domain.TaskStatusInProgress), due(0), category(domain.TaskCategoryTechnical))
	testutil.Task(t, db, district, locality, sup, asg, due(7), category(domain.TaskCategoryTechnical))
	testutil.Task(t, db, district, locality, sup, asg, due(8))
	testutil.Task(t, db, district, locality, sup, asg, status(domain.TaskStatusRejected), due(2))

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)

	byStatus, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	counts := map[domain.TaskStatus]int64{}
	for _, s := range byStatus {
		counts[s.Status] = s.Count
	}
	assert.Equal(t, int64(3), counts[domain.TaskStatusPending])
	assert.Equal(t, int64(1), counts[domain.TaskStatusInProgress])
	assert.Equal(t, int64(1), counts[domain.TaskStatusCompleted])
	assert.Equal(t, int64(1), counts[domain.TaskStatusRejected])

	urgentTasks, err := repo.ListActiveByPriority(ctx, domain.TaskPriorityUrgent, 5)
	require.NoError(t, err)
	assert.Len(t, urgentTasks, 1)

	dueSoon, err := repo.ListActiveDueBetween(ctx, today, today.AddDate(0, 0, 7), 5)
	require.NoError(t, err)
	require.Len(t, dueSoon, 3)
	assert.True(t, dueSoon[0].ExpectedEndDate.Equal(today))

	byCategory, err := repo.CountByCategory(ctx)
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	assert.Equal(t, domain.TaskCategoryOperational, byCategory[0].Category)
	assert.Equal(t, int64(4), byCategory[0].Count)
	assert.Equal(t, domain.TaskCategoryTechnical, byCategory[1].Category)
}

func TestTaskRepository_ListFilters(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	_, district, locality := testutil.Geography(t, db)
	sup := testutil.Staff(t, db, "1", "Sup", "Ervisor", domain.RoleCoordinator)
	asg := testutil.Staff(t, db, "2", "Asi", "Gnado", domain.RoleStaff)
	other := testutil.Staff(t, db, "3", "Otro", "Miembro", domain.RoleStaff)
	today := domain.Today()

	late := testutil.Task(t, db, district, locality, sup, asg, func(t *domain.Task) {
		t.ExpectedEndDate = today.AddDate(0, 0, -1)
		t.StartDate = today.AddDate(0, 0, -10)
	})
	hidden := testutil.Task(t, db, district, locality, sup, asg, func(t *domain.Task) { t.Visible = false })
	onTime := testutil.Task(t, db, district, locality, sup, other)
	require.NoError(t, repo.ReplaceParticipants(ctx, onTime.ID, []uint{asg.ID, asg.ID}))

	t.Run("hidden excluded by default", func(t *testing.T) {
		_, total, err := repo.List(ctx, TaskFilters{Today: today}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		_, total, err = repo.List(ctx, TaskFilters{Today: today, IncludeHidden: true}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("overdue", func(t *testing.T) {
		yes := true
		tasks, _, err := repo.List(ctx, TaskFilters{Today: today, Overdue: &yes}, 1, 10)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, late.ID, tasks[0].ID)
	})

	t.Run("involved staff includes participation", func(t *testing.T) {
		tasks, _, err := repo.List(ctx, TaskFilters{Today: today, InvolvedStaffID: &asg.ID, IncludeHidden: true}, 1, 10)
		require.NoError(t, err)
		ids := []uint{}
		for _, task := range tasks {
			ids = append(ids, task.ID)
		}
		assert.ElementsMatch(t, []uint{late.ID, hidden.ID, onTime.ID}, ids)
	})

	t.Run("participants loaded once each", func(t *testing.T) {
		task, err := repo.GetByID(ctx, onTime.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{asg.ID}, task.ParticipantIDs())
	})

	t.Run("staff references", func(t *testing.T) {
		held, err := repo.CountHeldBy(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), held)

		require.NoError(t, repo.RemoveParticipant(ctx, asg.ID))
		task, err := repo.GetByID(ctx, onTime.ID)
		require.NoError(t, err)
		assert.Empty(t, task.Participants)
	})
}

func TestAuditRepository_AppendOnly(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	_, district, locality := testutil.Geography(t, db)
	s := testutil.Staff(t, db, "1", "A", "B", domain.RoleStaff)
	task := testutil.Task(t, db, district, locality, s, s)

	now := domain.Today()
	first := &domain.AuditEntry{TaskID: task.ID, StaffID: s.ID, Action: domain.AuditActionCreation, Description: "created", PerformedAt: now}
	second := &domain.AuditEntry{TaskID: task.ID, StaffID: s.ID, Action: domain.AuditActionUpdate, Description: "updated", PerformedAt: now.Add(time.Second)}
	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	entries, err := repo.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.NotNil(t, entries[0].Staff)

	first.Description = "rewritten"
	assert.ErrorIs(t, db.Save(first).Error, domain.ErrAuditImmutable)
	assert.ErrorIs(t, db.Delete(first).Error, domain.ErrAuditImmutable)

	count, err := repo.CountByStaff(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

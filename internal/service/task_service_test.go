package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var taskClock = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type taskFixture struct {
	db       *gorm.DB
	svc      *TaskService
	district domain.District
	locality domain.Locality
	sup      domain.Staff
	asg      domain.Staff
	outsider domain.Staff
	manager  *auth.UserContext
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	_, district, locality := testutil.Geography(t, db)
	f := &taskFixture{
		db:       db,
		svc:      newTaskService(db, taskClock),
		district: district,
		locality: locality,
		sup:      testutil.Staff(t, db, "V1", "Ana", "Supervisora", domain.RoleCoordinator),
		asg:      testutil.Staff(t, db, "V2", "Beto", "Asignado", domain.RoleStaff),
		outsider: testutil.Staff(t, db, "V3", "Cira", "Externa", domain.RoleStaff),
	}
	f.manager = actorFor(f.sup, domain.RoleCoordinator)
	return f
}

func (f *taskFixture) createRequest() *domain.CreateTaskRequest {
	return &domain.CreateTaskRequest{
		Title:           "Bacheo avenida 5 de Julio",
		Description:     "Reparación de calzada",
		Category:        domain.TaskCategoryOperational,
		DistrictID:      f.district.ID,
		LocalityID:      f.locality.ID,
		StartDate:       "2026-03-10",
		ExpectedEndDate: "2026-03-20",
		ParticipantIDs:  []uint{f.outsider.ID, f.outsider.ID},
		SupervisorID:    f.sup.ID,
		AssignedStaffID: f.asg.ID,
		UnitOfMeasure:   "m2",
		Quantity:        decimal.RequireFromString("120.50"),
	}
}

func (f *taskFixture) create(t *testing.T) *domain.TaskDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), f.manager, f.createRequest())
	require.NoError(t, err)
	return dto
}

func auditValues(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	values := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &values))
	return values
}

func TestTaskTransitions(t *testing.T) {
	tests := []struct {
		from, to domain.TaskStatus
		want     bool
	}{
		{domain.TaskStatusPending, domain.TaskStatusInProgress, true},
		{domain.TaskStatusPending, domain.TaskStatusRejected, true},
		{domain.TaskStatusPending, domain.TaskStatusCompleted, false},
		{domain.TaskStatusInProgress, domain.TaskStatusCompleted, true},
		{domain.TaskStatusInProgress, domain.TaskStatusRejected, true},
		{domain.TaskStatusInProgress, domain.TaskStatusPending, false},
		{domain.TaskStatusCompleted, domain.TaskStatusInProgress, false},
		{domain.TaskStatusRejected, domain.TaskStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateProgressAndQuantity(t *testing.T) {
	assert.NoError(t, ValidateProgress(0))
	assert.NoError(t, ValidateProgress(100))
	assert.Error(t, ValidateProgress(-1))
	assert.Error(t, ValidateProgress(101))

	assert.NoError(t, ValidateQuantity(decimal.Zero))
	assert.NoError(t, ValidateQuantity(decimal.RequireFromString("12.34")))
	assert.Error(t, ValidateQuantity(decimal.RequireFromString("1.234")))
	assert.Error(t, ValidateQuantity(decimal.RequireFromString("-1")))
	assert.NoError(t, ValidateQuantity(decimal.RequireFromString("99999999.99")))
	assert.Error(t, ValidateQuantity(decimal.RequireFromString("100000000")))
}

func TestTaskService_Create(t *testing.T) {
	f := newTaskFixture(t)

	dto := f.create(t)
	assert.Equal(t, domain.TaskStatusPending, dto.Status)
	assert.Equal(t, domain.TaskPriorityNormal, dto.Priority)
	assert.True(t, dto.Visible)
	assert.Equal(t, "2026-03-20", dto.ExpectedEndDate)
	assert.Equal(t, "120.5", dto.Quantity.String())
	require.Len(t, dto.Participants, 1)
	assert.Equal(t, f.outsider.ID, dto.Participants[0].ID)

	history, err := f.svc.History(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.AuditActionCreation, history[0].Action)
	assert.Equal(t, f.sup.ID, history[0].StaffID)
	assert.Equal(t, "2026-03-10T15:30:00Z", history[0].PerformedAt)
	assert.Nil(t, history[0].PreviousValues)
	created := auditValues(t, history[0].NewValues)
	assert.Equal(t, "Bacheo avenida 5 de Julio", created["title"])
	assert.Equal(t, "120.50", created["quantity"])
}

func TestTaskService_Create_Validation(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	other := domain.District{RegionID: f.district.RegionID, Name: "San Francisco", Code: "2116"}
	require.NoError(t, f.db.Create(&other).Error)

	tests := []struct {
		name   string
		mutate func(r *domain.CreateTaskRequest)
		field  string
	}{
		{"locality outside district", func(r *domain.CreateTaskRequest) { r.DistrictID = other.ID }, "localityId"},
		{"progress out of range", func(r *domain.CreateTaskRequest) { r.ProgressPercent = 120 }, "progressPercent"},
		{"quantity precision", func(r *domain.CreateTaskRequest) { r.Quantity = decimal.RequireFromString("1.234") }, "quantity"},
		{"quantity too large", func(r *domain.CreateTaskRequest) { r.Quantity = decimal.RequireFromString("123456789") }, "quantity"},
		{"end before start", func(r *domain.CreateTaskRequest) { r.ExpectedEndDate = "2026-03-01" }, "expectedEndDate"},
		{"unknown assignee", func(r *domain.CreateTaskRequest) { r.AssignedStaffID = 999 }, "assignedStaffId"},
		{"unknown participant", func(r *domain.CreateTaskRequest) { r.ParticipantIDs = []uint{999} }, "participantIds"},
		{"bad category", func(r *domain.CreateTaskRequest) { r.Category = "misc" }, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.createRequest()
			tt.mutate(req)
			_, err := f.svc.Create(ctx, f.manager, req)
			requireFieldError(t, err, tt.field)
		})
	}

	assert.Equal(t, int64(0), count(t, f.db, &domain.Task{}))
	assert.Equal(t, int64(0), count(t, f.db, &domain.AuditEntry{}))
}

func TestTaskService_Create_ActorWithoutStaff(t *testing.T) {
	f := newTaskFixture(t)
	admin := &auth.UserContext{AccountID: 99, Username: "root", Role: domain.RoleSuperuser}

	_, err := f.svc.Create(context.Background(), admin, f.createRequest())
	assert.ErrorIs(t, err, ErrNoStaffProfile)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestTaskService_Update(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t)

	title := "Bacheo avenida 5 de Julio, tramo norte"
	progress := 40
	updated, err := f.svc.Update(ctx, f.manager, task.ID, &domain.UpdateTaskRequest{
		Title:           &title,
		ProgressPercent: &progress,
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, 40, updated.ProgressPercent)

	history, err := f.svc.History(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.AuditActionUpdate, history[0].Action)
	prev := auditValues(t, history[0].PreviousValues)
	next := auditValues(t, history[0].NewValues)
	assert.Len(t, next, 2)
	assert.Equal(t, float64(0), prev["progressPercent"])
	assert.Equal(t, float64(40), next["progressPercent"])
	assert.Equal(t, title, next["title"])

	// nothing changes, nothing is recorded
	_, err = f.svc.Update(ctx, f.manager, task.ID, &domain.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count(t, f.db, &domain.AuditEntry{}))
}

func TestTaskService_Update_Authorization(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	req := f.createRequest()
	req.ParticipantIDs = nil
	task, err := f.svc.Create(ctx, f.manager, req)
	require.NoError(t, err)

	notes := "Material solicitado"
	_, err = f.svc.Update(ctx, actorFor(f.outsider, domain.RoleStaff), task.ID, &domain.UpdateTaskRequest{Notes: &notes})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := f.svc.Update(ctx, actorFor(f.asg, domain.RoleStaff), task.ID, &domain.UpdateTaskRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)

	history, err := f.svc.History(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, f.asg.ID, history[0].StaffID)
}

func TestTaskService_Lifecycle(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t)

	_, err := f.svc.Complete(ctx, f.manager, task.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	started, err := f.svc.Start(ctx, f.manager, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, started.Status)

	_, err = f.svc.Complete(ctx, f.manager, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotCompletable)

	full := 100
	_, err = f.svc.Update(ctx, f.manager, task.ID, &domain.UpdateTaskRequest{ProgressPercent: &full})
	require.NoError(t, err)

	completed, err := f.svc.Complete(ctx, f.manager, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, completed.Status)
	require.NotNil(t, completed.ActualEndDate)
	assert.Equal(t, "2026-03-10", *completed.ActualEndDate)
	assert.False(t, completed.Completable)

	history, err := f.svc.History(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, domain.AuditActionCompletion, history[0].Action)
	assert.Equal(t, "completed", auditValues(t, history[0].NewValues)["status"])

	notes := "tarde"
	_, err = f.svc.Update(ctx, f.manager, task.ID, &domain.UpdateTaskRequest{Notes: &notes})
	assert.ErrorIs(t, err, ErrTaskTerminal)
	_, err = f.svc.Reject(ctx, f.manager, task.ID, &domain.RejectTaskRequest{Reason: "x"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Reassign(ctx, f.manager, task.ID, &domain.ReassignTaskRequest{AssignedStaffID: f.outsider.ID})
	assert.ErrorIs(t, err, ErrTaskTerminal)
}

func TestTaskService_Reject(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t)

	_, err := f.svc.Reject(ctx, f.manager, task.ID, &domain.RejectTaskRequest{Reason: "  "})
	requireFieldError(t, err, "reason")

	rejected, err := f.svc.Reject(ctx, f.manager, task.ID, &domain.RejectTaskRequest{Reason: "Sin material"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusRejected, rejected.Status)
	assert.Equal(t, "Sin material", rejected.NonCompletionReason)

	history, err := f.svc.History(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditActionRejection, history[0].Action)
	assert.Equal(t, "Task rejected: Sin material", history[0].Description)
}

func TestTaskService_Reassign(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t)

	_, err := f.svc.Reassign(ctx, actorFor(f.asg, domain.RoleStaff), task.ID, &domain.ReassignTaskRequest{AssignedStaffID: f.outsider.ID})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.Reassign(ctx, f.manager, task.ID, &domain.ReassignTaskRequest{AssignedStaffID: f.asg.ID})
	requireFieldError(t, err, "assignedStaffId")

	_, err = f.svc.Reassign(ctx, f.manager, task.ID, &domain.ReassignTaskRequest{AssignedStaffID: 999})
	requireFieldError(t, err, "assignedStaffId")

	reassigned, err := f.svc.Reassign(ctx, f.manager, task.ID, &domain.ReassignTaskRequest{
		AssignedStaffID: f.outsider.ID,
		Note:            "vacaciones",
	})
	require.NoError(t, err)
	assert.Equal(t, f.outsider.ID, reassigned.AssignedStaff.ID)
	require.NotNil(t, reassigned.ReassignedStaff)
	assert.Equal(t, f.asg.ID, reassigned.ReassignedStaff.ID)

	history, err := f.svc.History(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditActionReassignment, history[0].Action)
	assert.Equal(t, "Task reassigned to Cira Externa: vacaciones", history[0].Description)
	next := auditValues(t, history[0].NewValues)
	assert.Equal(t, float64(f.outsider.ID), next["assignedStaffId"])
	assert.Equal(t, float64(f.asg.ID), next["reassignedStaffId"])
}

func TestTaskService_List(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	hidden := func(t *domain.Task) { t.Visible = false }
	testutil.Task(t, f.db, f.district, f.locality, f.sup, f.asg)
	testutil.Task(t, f.db, f.district, f.locality, f.sup, f.outsider, hidden)

	page, err := f.svc.List(ctx, f.manager, TaskListFilters{IncludeHidden: true}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	staffActor := actorFor(f.outsider, domain.RoleStaff)
	page, err = f.svc.List(ctx, staffActor, TaskListFilters{IncludeHidden: true}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.svc.List(ctx, actorFor(f.asg, domain.RoleStaff), TaskListFilters{Mine: true}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = f.svc.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

// failInsertsInto makes every insert into table fail from now on
func failInsertsInto(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == table {
			_ = tx.AddError(errors.New(table + " unavailable"))
		}
	})
	require.NoError(t, err)
}

func TestTaskService_Create_AuditFailureRollsBack(t *testing.T) {
	f := newTaskFixture(t)
	failInsertsInto(t, f.db, "audit_entries")

	_, err := f.svc.Create(context.Background(), f.manager, f.createRequest())
	require.Error(t, err)

	assert.Equal(t, int64(0), count(t, f.db, &domain.Task{}))
	assert.Equal(t, int64(0), count(t, f.db, &domain.TaskParticipant{}))
	assert.Equal(t, int64(0), count(t, f.db, &domain.AuditEntry{}))
}

func TestTaskService_Update_AuditFailureRollsBack(t *testing.T) {
	f := newTaskFixture(t)
	dto := f.create(t)
	failInsertsInto(t, f.db, "audit_entries")

	progress := 60
	_, err := f.svc.Update(context.Background(), f.manager, dto.ID, &domain.UpdateTaskRequest{ProgressPercent: &progress})
	require.Error(t, err)

	var task domain.Task
	require.NoError(t, f.db.First(&task, dto.ID).Error)
	assert.Equal(t, 0, task.ProgressPercent)
	assert.Equal(t, int64(1), count(t, f.db, &domain.AuditEntry{}))
}

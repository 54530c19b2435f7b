package service

import (
	"testing"
	"time"

	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testBcryptCost = 4

var testStaffConfig = config.StaffConfig{
	TemporaryPassword: "temp_password_123",
	PhoneRegion:       "VE",
	PageSize:          10,
}

func newStaffService(db *gorm.DB) *StaffService {
	cfg := testStaffConfig
	return NewStaffService(
		repository.NewStaffRepository(db),
		repository.NewAccountRepository(db),
		repository.NewDepartmentRepository(db),
		repository.NewTaskRepository(db),
		repository.NewAuditRepository(db),
		db,
		&cfg,
		testBcryptCost,
		zap.NewNop(),
	)
}

func newTaskService(db *gorm.DB, now time.Time) *TaskService {
	svc := NewTaskService(
		repository.NewTaskRepository(db),
		repository.NewAuditRepository(db),
		repository.NewStaffRepository(db),
		repository.NewGeographyRepository(db),
		db,
		zap.NewNop(),
	)
	svc.now = func() time.Time { return now }
	return svc
}

// actorFor builds the request actor of a staff fixture
func actorFor(staff domain.Staff, role domain.UserRoleType) *auth.UserContext {
	id := staff.ID
	return &auth.UserContext{
		AccountID: staff.AccountID,
		StaffID:   &id,
		Username:  "user" + staff.NationalID,
		Role:      role,
	}
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, field)
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestValidationError(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.Err())

	verr.Add("title", "required")
	verr.Add("title", "too long")
	verr.Add("category", "invalid")

	err := verr.Err()
	require.Error(t, err)
	assert.Equal(t, "required", verr.Fields["title"])
	assert.Equal(t, "validation failed: category: invalid; title: required", err.Error())
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFound(ErrTaskNotFound))
	assert.True(t, IsNotFound(ErrStaffNotFound))
	assert.False(t, IsNotFound(ErrPermissionDenied))

	assert.True(t, IsConflict(ErrInvalidTransition))
	assert.True(t, IsConflict(ErrStaffInUse))
	assert.False(t, IsConflict(ErrTaskNotFound))

	assert.ErrorIs(t, ErrNoStaffProfile, ErrPermissionDenied)
}

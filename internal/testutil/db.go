// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// NewTestDB returns an isolated in-memory SQLite database with the full schema.
// The pool is limited to one connection so the in-memory database is shared
// by every query of the test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.SetupJoinTable(&domain.Task{}, "Participants", &domain.TaskParticipant{}))
	require.NoError(t, db.AutoMigrate(
		&domain.Region{},
		&domain.District{},
		&domain.Locality{},
		&domain.Organization{},
		&domain.Account{},
		&domain.Department{},
		&domain.Staff{},
		&domain.Task{},
		&domain.TaskParticipant{},
		&domain.AuditEntry{},
	))

	return db
}

// Geography creates one region, district and locality
func Geography(t *testing.T, db *gorm.DB) (domain.Region, domain.District, domain.Locality) {
	t.Helper()
	region := domain.Region{Name: "Zulia"}
	require.NoError(t, db.Create(&region).Error)
	district := domain.District{RegionID: region.ID, Name: "Maracaibo", Code: "2113"}
	require.NoError(t, db.Create(&district).Error)
	locality := domain.Locality{DistrictID: district.ID, Name: "Chiquinquirá", Code: "01", DistrictCode: district.Code}
	require.NoError(t, db.Create(&locality).Error)
	return region, district, locality
}

// Department creates a department
func Department(t *testing.T, db *gorm.DB, name string) domain.Department {
	t.Helper()
	d := domain.Department{Name: name, Type: domain.DepartmentTypeUnit}
	require.NoError(t, db.Create(&d).Error)
	return d
}

// Staff creates an account and its staff record. nationalID doubles as username.
func Staff(t *testing.T, db *gorm.DB, nationalID, firstName, lastName string, role domain.UserRoleType) domain.Staff {
	t.Helper()
	account := domain.Account{
		Username:     "user" + nationalID,
		Email:        nationalID + "@example.com",
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&account).Error)

	staff := domain.Staff{
		AccountID:      account.ID,
		NationalID:     nationalID,
		FirstName:      firstName,
		LastName:       lastName,
		BirthDate:      time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		HireDate:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		AccountCreated: true,
	}
	require.NoError(t, db.Create(&staff).Error)
	staff.Account = &account
	return staff
}

// TaskOption customizes a task built by Task
type TaskOption func(*domain.Task)

// Task creates a pending task supervised and assigned as given
func Task(t *testing.T, db *gorm.DB, district domain.District, locality domain.Locality, supervisor, assignee domain.Staff, opts ...TaskOption) domain.Task {
	t.Helper()
	today := domain.Today()
	task := domain.Task{
		Title:           "Inspección de vialidad",
		Description:     "Inspección semanal",
		Category:        domain.TaskCategoryOperational,
		Priority:        domain.TaskPriorityNormal,
		Status:          domain.TaskStatusPending,
		DistrictID:      district.ID,
		LocalityID:      locality.ID,
		StartDate:       today,
		ExpectedEndDate: today.AddDate(0, 0, 14),
		SupervisorID:    supervisor.ID,
		AssignedStaffID: assignee.ID,
		UnitOfMeasure:   "km",
		Quantity:        decimal.NewFromInt(3),
		Visible:         true,
	}
	for _, opt := range opts {
		opt(&task)
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

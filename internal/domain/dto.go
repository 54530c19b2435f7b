package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PaginatedResponse wraps a page of results with the pre-pagination total
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Geography

type RegionDTO struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type DistrictDTO struct {
	ID         uint   `json:"id"`
	RegionID   uint   `json:"regionId"`
	RegionName string `json:"regionName,omitempty"`
	Name       string `json:"name"`
	Code       string `json:"code"`
}

type LocalityDTO struct {
	ID           uint   `json:"id"`
	DistrictID   uint   `json:"districtId"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	DistrictCode string `json:"districtCode"`
}

type CreateRegionRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty"`
}

type CreateDistrictRequest struct {
	RegionID uint   `json:"regionId" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
	Code     string `json:"code" validate:"required,max=10"`
}

type CreateLocalityRequest struct {
	DistrictID uint   `json:"districtId" validate:"required"`
	Name       string `json:"name" validate:"required,max=100"`
	Code       string `json:"code" validate:"required,max=10"`
}

// Organization

type OrganizationDTO struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Website   string `json:"website,omitempty"`
	LogoPath  string `json:"logoPath,omitempty"`
	CreatedAt string `json:"createdAt"` // ISO 8601
}

type OrganizationRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Website string `json:"website,omitempty" validate:"omitempty,url,max=300"`
}

// HomeDTO is served to anonymous visitors of the root path
type HomeDTO struct {
	Application  string           `json:"application"`
	Organization *OrganizationDTO `json:"organization"`
}

// Departments

type DepartmentDTO struct {
	ID              uint           `json:"id"`
	Name            string         `json:"name"`
	Type            DepartmentType `json:"type"`
	CoordinatorID   *uint          `json:"coordinatorId,omitempty"`
	CoordinatorName string         `json:"coordinatorName,omitempty"`
	Description     string         `json:"description,omitempty"`
	StaffCount      int64          `json:"staffCount"`
	CreatedAt       string         `json:"createdAt"`
}

type DepartmentRequest struct {
	Name          string         `json:"name" validate:"required,max=200"`
	Type          DepartmentType `json:"type" validate:"required,oneof=coordination unit section"`
	CoordinatorID *uint          `json:"coordinatorId,omitempty"`
	Description   string         `json:"description,omitempty"`
}

// Staff

// StaffRefDTO is a compact reference to a staff member
type StaffRefDTO struct {
	ID       uint   `json:"id"`
	FullName string `json:"fullName"`
}

type StaffDTO struct {
	ID                uint         `json:"id"`
	NationalID        string       `json:"nationalId"`
	FirstName         string       `json:"firstName"`
	LastName          string       `json:"lastName"`
	FullName          string       `json:"fullName"`
	BirthDate         string       `json:"birthDate"`
	HireDate          string       `json:"hireDate"`
	DepartmentID      *uint        `json:"departmentId,omitempty"`
	DepartmentName    string       `json:"departmentName,omitempty"`
	Phone             string       `json:"phone,omitempty"`
	Address           string       `json:"address,omitempty"`
	Username          string       `json:"username,omitempty"`
	Email             string       `json:"email,omitempty"`
	Role              UserRoleType `json:"role,omitempty"`
	AccountCreated    bool         `json:"accountCreated"`
	TemporaryPassword bool         `json:"temporaryPassword"`
	FirstAccessAt     *string      `json:"firstAccessAt,omitempty"`
	CreatedAt         string       `json:"createdAt"`
}

type StaffDetailDTO struct {
	StaffDTO
	AssignedTasks []TaskSummaryDTO `json:"assignedTasks"`
}

// StaffFormRequest creates or edits a staff member together with its account.
// Department is either an existing DepartmentID or a new department built
// from NewDepartmentName and NewDepartmentType.
type StaffFormRequest struct {
	NationalID        string         `json:"nationalId" validate:"required,max=20"`
	FirstName         string         `json:"firstName" validate:"required,max=100"`
	LastName          string         `json:"lastName" validate:"required,max=100"`
	BirthDate         string         `json:"birthDate" validate:"required,datetime=2006-01-02"`
	HireDate          string         `json:"hireDate" validate:"required,datetime=2006-01-02"`
	Phone             string         `json:"phone,omitempty" validate:"omitempty,max=30,phone"`
	Address           string         `json:"address,omitempty"`
	Username          string         `json:"username" validate:"required,max=150"`
	Email             string         `json:"email" validate:"required,email,max=254"`
	Password          string         `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	Role              UserRoleType   `json:"role,omitempty" validate:"omitempty,oneof=admin coordinator staff"`
	DepartmentID      *uint          `json:"departmentId,omitempty"`
	CreateDepartment  bool           `json:"createDepartment"`
	NewDepartmentName string         `json:"newDepartmentName,omitempty" validate:"max=200"`
	NewDepartmentType DepartmentType `json:"newDepartmentType,omitempty"`
}

// Tasks

type TaskSummaryDTO struct {
	ID              uint         `json:"id"`
	Title           string       `json:"title"`
	Category        TaskCategory `json:"category"`
	Priority        TaskPriority `json:"priority"`
	Status          TaskStatus   `json:"status"`
	ExpectedEndDate string       `json:"expectedEndDate"`
	ProgressPercent int          `json:"progressPercent"`
	ProgressBand    ProgressBand `json:"progressBand"`
	Overdue         bool         `json:"overdue"`
	AssignedStaff   *StaffRefDTO `json:"assignedStaff,omitempty"`
}

type TaskDTO struct {
	ID                  uint            `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Category            TaskCategory    `json:"category"`
	Priority            TaskPriority    `json:"priority"`
	Status              TaskStatus      `json:"status"`
	DistrictID          uint            `json:"districtId"`
	DistrictName        string          `json:"districtName,omitempty"`
	LocalityID          uint            `json:"localityId"`
	LocalityName        string          `json:"localityName,omitempty"`
	StartDate           string          `json:"startDate"`
	ExpectedEndDate     string          `json:"expectedEndDate"`
	ActualEndDate       *string         `json:"actualEndDate,omitempty"`
	Participants        []StaffRefDTO   `json:"participants"`
	Supervisor          StaffRefDTO     `json:"supervisor"`
	AssignedStaff       StaffRefDTO     `json:"assignedStaff"`
	ReassignedStaff     *StaffRefDTO    `json:"reassignedStaff,omitempty"`
	UnitOfMeasure       string          `json:"unitOfMeasure"`
	Quantity            decimal.Decimal `json:"quantity"`
	ProgressPercent     int             `json:"progressPercent"`
	ProgressBand        ProgressBand    `json:"progressBand"`
	Overdue             bool            `json:"overdue"`
	Completable         bool            `json:"completable"`
	Visible             bool            `json:"visible"`
	NonCompletionReason string          `json:"nonCompletionReason,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	CreatedAt           string          `json:"createdAt"`
}

type CreateTaskRequest struct {
	Title           string          `json:"title" validate:"required,max=200"`
	Description     string          `json:"description" validate:"required"`
	Category        TaskCategory    `json:"category" validate:"required,oneof=administrative operational technical logistic other"`
	Priority        TaskPriority    `json:"priority,omitempty" validate:"omitempty,oneof=normal urgent priority"`
	DistrictID      uint            `json:"districtId" validate:"required"`
	LocalityID      uint            `json:"localityId" validate:"required"`
	StartDate       string          `json:"startDate" validate:"required,datetime=2006-01-02"`
	ExpectedEndDate string          `json:"expectedEndDate" validate:"required,datetime=2006-01-02"`
	ParticipantIDs  []uint          `json:"participantIds,omitempty"`
	SupervisorID    uint            `json:"supervisorId" validate:"required"`
	AssignedStaffID uint            `json:"assignedStaffId" validate:"required"`
	UnitOfMeasure   string          `json:"unitOfMeasure" validate:"required,max=50"`
	Quantity        decimal.Decimal `json:"quantity"`
	ProgressPercent int             `json:"progressPercent"`
	Visible         *bool           `json:"visible,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// UpdateTaskRequest changes only the fields that are present
type UpdateTaskRequest struct {
	Title           *string          `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string          `json:"description,omitempty" validate:"omitempty,min=1"`
	Category        *TaskCategory    `json:"category,omitempty" validate:"omitempty,oneof=administrative operational technical logistic other"`
	Priority        *TaskPriority    `json:"priority,omitempty" validate:"omitempty,oneof=normal urgent priority"`
	DistrictID      *uint            `json:"districtId,omitempty"`
	LocalityID      *uint            `json:"localityId,omitempty"`
	StartDate       *string          `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ExpectedEndDate *string          `json:"expectedEndDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ParticipantIDs  *[]uint          `json:"participantIds,omitempty"`
	SupervisorID    *uint            `json:"supervisorId,omitempty"`
	UnitOfMeasure   *string          `json:"unitOfMeasure,omitempty" validate:"omitempty,min=1,max=50"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty"`
	ProgressPercent *int             `json:"progressPercent,omitempty"`
	Visible         *bool            `json:"visible,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
}

type RejectTaskRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type ReassignTaskRequest struct {
	AssignedStaffID uint   `json:"assignedStaffId" validate:"required"`
	Note            string `json:"note,omitempty" validate:"max=500"`
}

// Audit

type AuditEntryDTO struct {
	ID             uint            `json:"id"`
	TaskID         uint            `json:"taskId"`
	StaffID        uint            `json:"staffId"`
	StaffName      string          `json:"staffName,omitempty"`
	Action         AuditAction     `json:"action"`
	Description    string          `json:"description"`
	PerformedAt    string          `json:"performedAt"`
	PreviousValues json.RawMessage `json:"previousValues,omitempty"`
	NewValues      json.RawMessage `json:"newValues,omitempty"`
}

// Dashboard

type CategoryCountDTO struct {
	Category TaskCategory `json:"category"`
	Count    int64        `json:"count"`
}

type DashboardDTO struct {
	TotalTasks      int64              `json:"totalTasks"`
	PendingTasks    int64              `json:"pendingTasks"`
	InProgressTasks int64              `json:"inProgressTasks"`
	CompletedTasks  int64              `json:"completedTasks"`
	UrgentTasks     []TaskSummaryDTO   `json:"urgentTasks"`
	DueSoonTasks    []TaskSummaryDTO   `json:"dueSoonTasks"`
	ByCategory      []CategoryCountDTO `json:"byCategory"`
	GeneratedAt     string             `json:"generatedAt"`
}

// DegradedDashboardDTO replaces the dashboard when any aggregate fails
type DegradedDashboardDTO struct {
	Degraded bool   `json:"degraded"`
	Error    string `json:"error"`
}

// Auth

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

type TokenResponse struct {
	AccessToken       string `json:"accessToken"`
	TokenType         string `json:"tokenType"`
	ExpiresAt         string `json:"expiresAt"`
	TemporaryPassword bool   `json:"temporaryPassword"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

type MeDTO struct {
	AccountID   uint         `json:"accountId"`
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	Role        UserRoleType `json:"role"`
	StaffID     *uint        `json:"staffId,omitempty"`
	Permissions []string     `json:"permissions"`
}

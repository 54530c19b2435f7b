package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskCategory represents the kind of work a task covers
type TaskCategory string

const (
	TaskCategoryAdministrative TaskCategory = "administrative"
	TaskCategoryOperational    TaskCategory = "operational"
	TaskCategoryTechnical      TaskCategory = "technical"
	TaskCategoryLogistic       TaskCategory = "logistic"
	TaskCategoryOther          TaskCategory = "other"
)

// IsValid checks if the category is valid
func (c TaskCategory) IsValid() bool {
	switch c {
	case TaskCategoryAdministrative, TaskCategoryOperational, TaskCategoryTechnical,
		TaskCategoryLogistic, TaskCategoryOther:
		return true
	}
	return false
}

// TaskPriority represents how a task is scheduled against others
type TaskPriority string

const (
	TaskPriorityNormal   TaskPriority = "normal"
	TaskPriorityUrgent   TaskPriority = "urgent"
	TaskPriorityPriority TaskPriority = "priority"
)

// IsValid checks if the priority is valid
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityNormal, TaskPriorityUrgent, TaskPriorityPriority:
		return true
	}
	return false
}

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusRejected   TaskStatus = "rejected"
)

// IsValid checks if the status is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves this status
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusRejected
}

// ActiveTaskStatuses are the non-terminal statuses
var ActiveTaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress}

// ProgressBand is a display classification of a progress percentage
type ProgressBand string

const (
	ProgressBandSuccess ProgressBand = "success"
	ProgressBandInfo    ProgressBand = "info"
	ProgressBandWarning ProgressBand = "warning"
	ProgressBandDanger  ProgressBand = "danger"
)

const (
	MinProgress = 0
	MaxProgress = 100
)

// Task is the central trackable work item
type Task struct {
	ID                  uint            `gorm:"primaryKey"`
	Title               string          `gorm:"type:varchar(200);not null"`
	Description         string          `gorm:"type:text;not null"`
	Category            TaskCategory    `gorm:"type:varchar(20);not null;index"`
	Priority            TaskPriority    `gorm:"type:varchar(20);not null;index"`
	Status              TaskStatus      `gorm:"type:varchar(20);not null;index"`
	DistrictID          uint            `gorm:"not null;index"`
	District            *District       `gorm:"foreignKey:DistrictID"`
	LocalityID          uint            `gorm:"not null;index"`
	Locality            *Locality       `gorm:"foreignKey:LocalityID"`
	StartDate           time.Time       `gorm:"type:date;not null"`
	ExpectedEndDate     time.Time       `gorm:"type:date;not null;index"`
	ActualEndDate       *time.Time      `gorm:"type:date"`
	Participants        []Staff         `gorm:"many2many:task_participants;"`
	SupervisorID        uint            `gorm:"not null;index"`
	Supervisor          *Staff          `gorm:"foreignKey:SupervisorID"`
	AssignedStaffID     uint            `gorm:"not null;index"`
	AssignedStaff       *Staff          `gorm:"foreignKey:AssignedStaffID"`
	ReassignedStaffID   *uint           `gorm:"index"`
	ReassignedStaff     *Staff          `gorm:"foreignKey:ReassignedStaffID;constraint:OnDelete:SET NULL"`
	UnitOfMeasure       string          `gorm:"type:varchar(50);not null"`
	Quantity            decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ProgressPercent     int             `gorm:"not null;check:chk_tasks_progress,progress_percent >= 0 AND progress_percent <= 100"`
	Visible             bool            `gorm:"not null;index"`
	NonCompletionReason string          `gorm:"type:text"`
	Notes               string          `gorm:"type:text"`
	CreatedAt           time.Time       `gorm:"not null;index"`
	UpdatedAt           time.Time       `gorm:"not null"`
}

// TaskParticipant is a row of the task/staff participation relation
type TaskParticipant struct {
	TaskID  uint `gorm:"primaryKey"`
	StaffID uint `gorm:"primaryKey;index"`
}

func (TaskParticipant) TableName() string {
	return "task_participants"
}

// IsOverdue reports whether the expected end date is before today and work remains
func (t *Task) IsOverdue(today time.Time) bool {
	return DateOf(t.ExpectedEndDate).Before(DateOf(today)) && t.ProgressPercent < MaxProgress
}

// IsCompletable reports whether progress is full and the task is not yet completed
func (t *Task) IsCompletable() bool {
	return t.ProgressPercent == MaxProgress && t.Status != TaskStatusCompleted
}

// Band returns the display band for the task's progress
func (t *Task) Band() ProgressBand {
	return BandFor(t.ProgressPercent)
}

// BandFor classifies a progress percentage. Lower bounds are inclusive.
func BandFor(progress int) ProgressBand {
	switch {
	case progress >= 100:
		return ProgressBandSuccess
	case progress >= 75:
		return ProgressBandInfo
	case progress >= 50:
		return ProgressBandWarning
	default:
		return ProgressBandDanger
	}
}

// ParticipantIDs returns the ids of the loaded participants
func (t *Task) ParticipantIDs() []uint {
	ids := make([]uint, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}

// Involves reports whether staffID supervises, is assigned to, or participates in the task
func (t *Task) Involves(staffID uint) bool {
	if t.SupervisorID == staffID || t.AssignedStaffID == staffID {
		return true
	}
	for _, p := range t.Participants {
		if p.ID == staffID {
			return true
		}
	}
	return false
}

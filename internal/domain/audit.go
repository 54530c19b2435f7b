package domain

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditAction is the kind of change recorded for a task
type AuditAction string

const (
	AuditActionCreation     AuditAction = "creation"
	AuditActionUpdate       AuditAction = "update"
	AuditActionCompletion   AuditAction = "completion"
	AuditActionRejection    AuditAction = "rejection"
	AuditActionReassignment AuditAction = "reassignment"
)

// IsValid checks if the action is valid
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionCreation, AuditActionUpdate, AuditActionCompletion,
		AuditActionRejection, AuditActionReassignment:
		return true
	}
	return false
}

// ErrAuditImmutable is returned when an audit entry is updated or deleted
var ErrAuditImmutable = errors.New("audit entries are append-only")

// AuditEntry is an append-only record of an action on a task
type AuditEntry struct {
	ID             uint           `gorm:"primaryKey"`
	TaskID         uint           `gorm:"not null;index:idx_audit_entries_task_performed"`
	Task           *Task          `gorm:"foreignKey:TaskID"`
	StaffID        uint           `gorm:"not null;index"`
	Staff          *Staff         `gorm:"foreignKey:StaffID"`
	Action         AuditAction    `gorm:"type:varchar(20);not null"`
	Description    string         `gorm:"type:text;not null"`
	PerformedAt    time.Time      `gorm:"not null;index:idx_audit_entries_task_performed"`
	PreviousValues datatypes.JSON `gorm:"type:jsonb"`
	NewValues      datatypes.JSON `gorm:"type:jsonb"`
}

func (AuditEntry) TableName() string {
	return "audit_entries"
}

// BeforeUpdate rejects any modification of a stored entry
func (e *AuditEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

// BeforeDelete rejects removal of entries
func (e *AuditEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}

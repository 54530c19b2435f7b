package repository

import (
	"context"

	"github.com/planiapp/tareas-api/internal/domain"
	"gorm.io/gorm"
)

// AuditRepository only appends and reads; entries are never changed
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AuditRepository) WithTx(tx *gorm.DB) *AuditRepository {
	return &AuditRepository{db: tx}
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	return r.db.WithContext(ctx).Omit("Task", "Staff").Create(entry).Error
}

// ListByTask returns a task's history, most recent first
func (r *AuditRepository) ListByTask(ctx context.Context, taskID uint) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := r.db.WithContext(ctx).
		Preload("Staff").
		Where("task_id = ?", taskID).
		Order("performed_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}

func (r *AuditRepository) CountByStaff(ctx context.Context, staffID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.AuditEntry{}).Where("staff_id = ?", staffID).Count(&count).Error
	return count, err
}

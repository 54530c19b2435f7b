package repository

import (
	"context"
	"time"

	"github.com/planiapp/tareas-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskFilters narrows task listings. Today anchors the overdue filter.
type TaskFilters struct {
	Status          *domain.TaskStatus
	Priority        *domain.TaskPriority
	Category        *domain.TaskCategory
	DistrictID      *uint
	AssignedStaffID *uint
	InvolvedStaffID *uint
	Overdue         *bool
	IncludeHidden   bool
	Today           time.Time
}

// StatusCount is a task count for one status
type StatusCount struct {
	Status domain.TaskStatus
	Count  int64
}

// CategoryCount is a task count for one category
type CategoryCount struct {
	Category domain.TaskCategory
	Count    int64
}

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// Update writes every column of task without touching associations
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).
		Preload("District").
		Preload("Locality").
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("last_name, first_name") }).
		Preload("Supervisor").
		Preload("AssignedStaff").
		Preload("ReassignedStaff").
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ReplaceParticipants sets the participant relation of a task to exactly staffIDs
func (r *TaskRepository) ReplaceParticipants(ctx context.Context, taskID uint, staffIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("task_id = ?", taskID).Delete(&domain.TaskParticipant{}).Error; err != nil {
		return err
	}
	if len(staffIDs) == 0 {
		return nil
	}
	rows := make([]domain.TaskParticipant, 0, len(staffIDs))
	seen := make(map[uint]bool, len(staffIDs))
	for _, id := range staffIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, domain.TaskParticipant{TaskID: taskID, StaffID: id})
	}
	return db.Create(&rows).Error
}

func (r *TaskRepository) filtered(ctx context.Context, f TaskFilters) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&domain.Task{})
	if !f.IncludeHidden {
		query = query.Where("visible = ?", true)
	}
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	if f.Priority != nil {
		query = query.Where("priority = ?", *f.Priority)
	}
	if f.Category != nil {
		query = query.Where("category = ?", *f.Category)
	}
	if f.DistrictID != nil {
		query = query.Where("district_id = ?", *f.DistrictID)
	}
	if f.AssignedStaffID != nil {
		query = query.Where("assigned_staff_id = ?", *f.AssignedStaffID)
	}
	if f.InvolvedStaffID != nil {
		id := *f.InvolvedStaffID
		participants := r.db.Model(&domain.TaskParticipant{}).Select("task_id").Where("staff_id = ?", id)
		query = query.Where("supervisor_id = ? OR assigned_staff_id = ? OR id IN (?)", id, id, participants)
	}
	if f.Overdue != nil {
		today := domain.DateOf(f.Today)
		if *f.Overdue {
			query = query.Where("expected_end_date < ? AND progress_percent < ?", today, domain.MaxProgress)
		} else {
			query = query.Where("NOT (expected_end_date < ? AND progress_percent < ?)", today, domain.MaxProgress)
		}
	}
	return query
}

func (r *TaskRepository) withRefs(query *gorm.DB) *gorm.DB {
	return query.
		Preload("District").
		Preload("Locality").
		Preload("Supervisor").
		Preload("AssignedStaff").
		Preload("ReassignedStaff")
}

// List returns one page of tasks, newest first, and the total match count
func (r *TaskRepository) List(ctx context.Context, filters TaskFilters, page, pageSize int) ([]domain.Task, int64, error) {
	var total int64
	if err := r.filtered(ctx, filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, pageSize, offset := Page(page, pageSize)

	var tasks []domain.Task
	err := r.withRefs(r.filtered(ctx, filters)).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&tasks).Error
	return tasks, total, err
}

// ListAll returns every matching task, for exports
func (r *TaskRepository) ListAll(ctx context.Context, filters TaskFilters) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.withRefs(r.filtered(ctx, filters)).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error
	return tasks, err
}

// ListAssignedTo returns tasks assigned to staffID by due date. A limit
// of zero or less returns all of them.
func (r *TaskRepository) ListAssignedTo(ctx context.Context, staffID uint, limit int) ([]domain.Task, error) {
	query := r.db.WithContext(ctx).
		Preload("AssignedStaff").
		Where("assigned_staff_id = ?", staffID).
		Order("expected_end_date ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var tasks []domain.Task
	err := query.Find(&tasks).Error
	return tasks, err
}

// Count returns the number of tasks
func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).Count(&count).Error
	return count, err
}

func (r *TaskRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// CountByCategory returns counts grouped by category, largest first
func (r *TaskRepository) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC, category ASC").
		Scan(&rows).Error
	return rows, err
}

// ListActiveByPriority returns up to limit non-terminal tasks of a priority,
// earliest expected end first
func (r *TaskRepository) ListActiveByPriority(ctx context.Context, priority domain.TaskPriority, limit int) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Preload("AssignedStaff").
		Where("priority = ? AND status IN ?", priority, domain.ActiveTaskStatuses).
		Order("expected_end_date ASC, id ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// ListActiveDueBetween returns up to limit non-terminal tasks whose expected
// end date falls in [from, to]
func (r *TaskRepository) ListActiveDueBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Preload("AssignedStaff").
		Where("status IN ?", domain.ActiveTaskStatuses).
		Where("expected_end_date >= ? AND expected_end_date <= ?", domain.DateOf(from), domain.DateOf(to)).
		Order("expected_end_date ASC, id ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// CountHeldBy counts tasks that staffID supervises or is assigned to
func (r *TaskRepository) CountHeldBy(ctx context.Context, staffID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("supervisor_id = ? OR assigned_staff_id = ?", staffID, staffID).
		Count(&count).Error
	return count, err
}

// ClearReassigned empties reassigned_staff_id where it points at staffID
func (r *TaskRepository) ClearReassigned(ctx context.Context, staffID uint) error {
	return r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("reassigned_staff_id = ?", staffID).
		Update("reassigned_staff_id", nil).Error
}

// RemoveParticipant drops staffID from every participant set
func (r *TaskRepository) RemoveParticipant(ctx context.Context, staffID uint) error {
	return r.db.WithContext(ctx).Where("staff_id = ?", staffID).Delete(&domain.TaskParticipant{}).Error
}

// CountInDistricts counts tasks located in any of the districts
func (r *TaskRepository) CountInDistricts(ctx context.Context, districtIDs []uint) (int64, error) {
	if len(districtIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).Where("district_id IN ?", districtIDs).Count(&count).Error
	return count, err
}

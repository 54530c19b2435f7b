package repository

import (
	"context"

	"github.com/planiapp/tareas-api/internal/domain"
	"gorm.io/gorm"
)

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *DepartmentRepository) WithTx(tx *gorm.DB) *DepartmentRepository {
	return &DepartmentRepository{db: tx}
}

func (r *DepartmentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Department{}).Count(&count).Error
	return count, err
}

func (r *DepartmentRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Department{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// DepartmentWithCount is a department with the number of staff attached to it
type DepartmentWithCount struct {
	domain.Department
	StaffCount int64
}

func (r *DepartmentRepository) List(ctx context.Context) ([]DepartmentWithCount, error) {
	var departments []domain.Department
	if err := r.db.WithContext(ctx).Preload("Coordinator").Order("name").Find(&departments).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		DepartmentID uint
		Count        int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Staff{}).
		Select("department_id, COUNT(*) as count").
		Where("department_id IS NOT NULL").
		Group("department_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.DepartmentID] = c.Count
	}

	result := make([]DepartmentWithCount, len(departments))
	for i, d := range departments {
		result[i] = DepartmentWithCount{Department: d, StaffCount: byID[d.ID]}
	}
	return result, nil
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id uint) (*domain.Department, error) {
	var department domain.Department
	if err := r.db.WithContext(ctx).Preload("Coordinator").First(&department, id).Error; err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *DepartmentRepository) CountStaff(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Staff{}).Where("department_id = ?", id).Count(&count).Error
	return count, err
}

func (r *DepartmentRepository) Create(ctx context.Context, department *domain.Department) error {
	return r.db.WithContext(ctx).Omit("Coordinator").Create(department).Error
}

func (r *DepartmentRepository) Update(ctx context.Context, department *domain.Department) error {
	return r.db.WithContext(ctx).Omit("Coordinator").Save(department).Error
}

func (r *DepartmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Department{}, id).Error
}

// DetachStaff clears department_id on every staff member of the department
func (r *DepartmentRepository) DetachStaff(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&domain.Staff{}).
		Where("department_id = ?", id).
		Update("department_id", nil).Error
}

// ClearCoordinator removes staffID as coordinator of any department
func (r *DepartmentRepository) ClearCoordinator(ctx context.Context, staffID uint) error {
	return r.db.WithContext(ctx).Model(&domain.Department{}).
		Where("coordinator_id = ?", staffID).
		Update("coordinator_id", nil).Error
}

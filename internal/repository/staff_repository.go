package repository

import (
	"context"
	"strings"
	"time"

	"github.com/planiapp/tareas-api/internal/domain"
	"gorm.io/gorm"
)

// StaffFilters narrows the staff directory
type StaffFilters struct {
	Query        string
	DepartmentID *uint
}

type StaffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *StaffRepository) WithTx(tx *gorm.DB) *StaffRepository {
	return &StaffRepository{db: tx}
}

func (r *StaffRepository) Create(ctx context.Context, staff *domain.Staff) error {
	return r.db.WithContext(ctx).Omit("Account", "Department").Create(staff).Error
}

func (r *StaffRepository) Update(ctx context.Context, staff *domain.Staff) error {
	return r.db.WithContext(ctx).Omit("Account", "Department").Save(staff).Error
}

func (r *StaffRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Staff{}, id).Error
}

func (r *StaffRepository) GetByID(ctx context.Context, id uint) (*domain.Staff, error) {
	var staff domain.Staff
	err := r.db.WithContext(ctx).
		Preload("Account").
		Preload("Department").
		First(&staff, id).Error
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *StaffRepository) GetByAccountID(ctx context.Context, accountID uint) (*domain.Staff, error) {
	var staff domain.Staff
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

// NationalIDTaken reports whether another staff member holds nationalID
func (r *StaffRepository) NationalIDTaken(ctx context.Context, nationalID string, excludeID *uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Staff{}).Where("national_id = ?", nationalID)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// CountExisting returns how many of ids exist
func (r *StaffRepository) CountExisting(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Staff{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// likeEscaper makes LIKE wildcards in user input match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *StaffRepository) filtered(ctx context.Context, filters StaffFilters) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&domain.Staff{}).
		Joins("LEFT JOIN accounts ON accounts.id = staff.account_id")

	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		query = query.Where(
			`LOWER(staff.national_id) LIKE ? ESCAPE '\' OR LOWER(staff.first_name) LIKE ? ESCAPE '\' OR `+
				`LOWER(staff.last_name) LIKE ? ESCAPE '\' OR LOWER(accounts.username) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern,
		)
	}
	if filters.DepartmentID != nil {
		query = query.Where("staff.department_id = ?", *filters.DepartmentID)
	}
	return query
}

// List returns one page of the directory ordered by last and first name,
// plus the total number of matches before pagination.
func (r *StaffRepository) List(ctx context.Context, filters StaffFilters, page, pageSize int) ([]domain.Staff, int64, error) {
	var total int64
	if err := r.filtered(ctx, filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, pageSize, offset := Page(page, pageSize)

	var staff []domain.Staff
	err := r.filtered(ctx, filters).
		Select("staff.*").
		Preload("Account").
		Preload("Department").
		Order("staff.last_name ASC, staff.first_name ASC, staff.id ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&staff).Error

	return staff, total, err
}

// ListAll returns every match of the directory, for exports
func (r *StaffRepository) ListAll(ctx context.Context, filters StaffFilters) ([]domain.Staff, error) {
	var staff []domain.Staff
	err := r.filtered(ctx, filters).
		Select("staff.*").
		Preload("Account").
		Preload("Department").
		Order("staff.last_name ASC, staff.first_name ASC, staff.id ASC").
		Find(&staff).Error
	return staff, err
}

// MarkFirstAccess records the first login time if none is recorded yet
func (r *StaffRepository) MarkFirstAccess(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Staff{}).
		Where("id = ? AND first_access_at IS NULL", id).
		Update("first_access_at", at).Error
}

func (r *StaffRepository) ClearTemporaryPassword(ctx context.Context, accountID uint) error {
	return r.db.WithContext(ctx).Model(&domain.Staff{}).
		Where("account_id = ?", accountID).
		Update("temporary_password", false).Error
}

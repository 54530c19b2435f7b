package repository

import (
	"context"
	"time"

	"github.com/planiapp/tareas-api/internal/domain"
	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx *gorm.DB) *AccountRepository {
	return &AccountRepository{db: tx}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *AccountRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Account{}, id).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, id uint) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// UsernameTaken reports whether another account uses username.
// excludeID skips the caller's own account when editing.
func (r *AccountRepository) UsernameTaken(ctx context.Context, username string, excludeID *uint) (bool, error) {
	return r.taken(ctx, "LOWER(username) = LOWER(?)", username, excludeID)
}

// EmailTaken reports whether another account uses email
func (r *AccountRepository) EmailTaken(ctx context.Context, email string, excludeID *uint) (bool, error) {
	return r.taken(ctx, "LOWER(email) = LOWER(?)", email, excludeID)
}

func (r *AccountRepository) taken(ctx context.Context, cond, value string, excludeID *uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Account{}).Where(cond, value)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *AccountRepository) CountByRole(ctx context.Context, role domain.UserRoleType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Account{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Update("last_login_at", at).Error
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Update("password_hash", hash).Error
}

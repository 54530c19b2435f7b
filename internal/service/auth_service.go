package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthService struct {
	accountRepo *repository.AccountRepository
	staffRepo   *repository.StaffRepository
	tokens      *auth.TokenManager
	db          *gorm.DB
	bcryptCost  int
	logger      *zap.Logger
	now         func() time.Time
}

func NewAuthService(
	accountRepo *repository.AccountRepository,
	staffRepo *repository.StaffRepository,
	tokens *auth.TokenManager,
	db *gorm.DB,
	bcryptCost int,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		staffRepo:   staffRepo,
		tokens:      tokens,
		db:          db,
		bcryptCost:  bcryptCost,
		logger:      logger,
		now:         time.Now,
	}
}

// Login checks credentials and issues an access token. The first
// successful login of a staff member is recorded.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenResponse, error) {
	account, err := s.accountRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if !account.IsActive || !auth.CheckPassword(account.PasswordHash, req.Password) {
		s.logger.Warn("failed login", zap.String("username", req.Username))
		return nil, ErrUnauthorized
	}

	// accounts without a staff record, such as superusers, get a nil staff
	staff, err := s.staffRepo.GetByAccountID(ctx, account.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}

	now := s.now().UTC()
	if err := s.accountRepo.TouchLastLogin(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	var staffID *uint
	temporary := false
	if staff != nil {
		staffID = &staff.ID
		temporary = staff.TemporaryPassword
		if err := s.staffRepo.MarkFirstAccess(ctx, staff.ID, now); err != nil {
			return nil, fmt.Errorf("failed to record first access: %w", err)
		}
	}

	token, expiresAt, err := s.tokens.Issue(account, staffID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login", zap.Uint("account_id", account.ID), zap.String("username", account.Username))
	return &domain.TokenResponse{
		AccessToken:       token,
		TokenType:         "Bearer",
		ExpiresAt:         expiresAt.UTC().Format(time.RFC3339),
		TemporaryPassword: temporary,
	}, nil
}

// ChangePassword replaces the actor's password and clears the
// temporary-password flag of its staff record
func (s *AuthService) ChangePassword(ctx context.Context, actor *auth.UserContext, req *domain.ChangePasswordRequest) error {
	if actor == nil || actor.AccountID == 0 {
		return ErrUnauthorized
	}
	account, err := s.accountRepo.GetByID(ctx, actor.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	verr := &ValidationError{}
	if !auth.CheckPassword(account.PasswordHash, req.CurrentPassword) {
		verr.Add("currentPassword", "Current password is incorrect")
	}
	if err := auth.ValidatePasswordLength(req.NewPassword); err != nil {
		verr.Add("newPassword", err.Error())
	}
	if req.NewPassword == req.CurrentPassword {
		verr.Add("newPassword", "New password must differ from the current one")
	}
	if err := verr.Err(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.WithTx(tx).UpdatePasswordHash(ctx, account.ID, hash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := s.staffRepo.WithTx(tx).ClearTemporaryPassword(ctx, account.ID); err != nil {
			return fmt.Errorf("failed to clear temporary password: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("password changed", zap.Uint("account_id", account.ID))
	return nil
}

// Me describes the current actor
func (s *AuthService) Me(actor *auth.UserContext) *domain.MeDTO {
	return &domain.MeDTO{
		AccountID:   actor.AccountID,
		Username:    actor.Username,
		Email:       actor.Email,
		Role:        actor.Role,
		StaffID:     actor.StaffID,
		Permissions: actor.Permissions(),
	}
}

// BootstrapSuperuser creates the configured superuser account when
// credentials are configured and no superuser exists yet. It reports
// whether an account was created.
func (s *AuthService) BootstrapSuperuser(ctx context.Context, cfg *config.BootstrapConfig) (bool, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return false, nil
	}
	count, err := s.accountRepo.CountByRole(ctx, domain.RoleSuperuser)
	if err != nil {
		return false, fmt.Errorf("failed to count superusers: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if err := auth.ValidatePasswordLength(cfg.Password); err != nil {
		return false, err
	}

	hash, err := auth.HashPassword(cfg.Password, s.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	email := cfg.Email
	if email == "" {
		email = cfg.Username + "@localhost"
	}
	account := &domain.Account{
		Username:     cfg.Username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleSuperuser,
		IsActive:     true,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return false, fmt.Errorf("failed to create superuser: %w", err)
	}

	s.logger.Info("superuser bootstrapped", zap.String("username", account.Username))
	return true, nil
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/export"
	"github.com/planiapp/tareas-api/internal/mapper"
	"github.com/planiapp/tareas-api/internal/repository"
	"github.com/planiapp/tareas-api/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ValidateStaffForm checks the department part of a staff form against the
// current system state and reports whether a new department must be created.
// With no departments in the system the form is always in create mode and the
// new department's name and type become required; otherwise an existing
// department must be selected unless a new one is requested.
func ValidateStaffForm(input *domain.StaffFormRequest, departmentsExist bool) (bool, error) {
	verr := &ValidationError{}

	createDepartment := input.CreateDepartment || !departmentsExist
	if createDepartment {
		if strings.TrimSpace(input.NewDepartmentName) == "" {
			verr.Add("newDepartmentName", "This field is required when creating a department")
		}
		if !input.NewDepartmentType.IsValid() {
			verr.Add("newDepartmentType", "Select a valid department type")
		}
		if input.DepartmentID != nil {
			verr.Add("departmentId", "Select an existing department or create a new one, not both")
		}
	} else if input.DepartmentID == nil {
		verr.Add("departmentId", "Select an existing department or create a new one")
	}

	birth, birthErr := domain.ParseDate(input.BirthDate)
	if birthErr != nil {
		verr.Add("birthDate", "Invalid date, expected YYYY-MM-DD")
	}
	hire, hireErr := domain.ParseDate(input.HireDate)
	if hireErr != nil {
		verr.Add("hireDate", "Invalid date, expected YYYY-MM-DD")
	}
	if birthErr == nil && hireErr == nil && hire.Before(birth) {
		verr.Add("hireDate", "Hire date cannot precede birth date")
	}

	if input.Role == domain.RoleSuperuser {
		verr.Add("role", "Superuser accounts cannot be created from the staff form")
	} else if input.Role != "" && !input.Role.IsValid() {
		verr.Add("role", "Invalid role")
	}
	if input.Password != "" {
		if err := auth.ValidatePasswordLength(input.Password); err != nil {
			verr.Add("password", err.Error())
		}
	}

	return createDepartment, verr.Err()
}

type StaffService struct {
	staffRepo   *repository.StaffRepository
	accountRepo *repository.AccountRepository
	deptRepo    *repository.DepartmentRepository
	taskRepo    *repository.TaskRepository
	auditRepo   *repository.AuditRepository
	db          *gorm.DB
	cfg         *config.StaffConfig
	bcryptCost  int
	logger      *zap.Logger
}

func NewStaffService(
	staffRepo *repository.StaffRepository,
	accountRepo *repository.AccountRepository,
	deptRepo *repository.DepartmentRepository,
	taskRepo *repository.TaskRepository,
	auditRepo *repository.AuditRepository,
	db *gorm.DB,
	cfg *config.StaffConfig,
	bcryptCost int,
	logger *zap.Logger,
) *StaffService {
	return &StaffService{
		staffRepo:   staffRepo,
		accountRepo: accountRepo,
		deptRepo:    deptRepo,
		taskRepo:    taskRepo,
		auditRepo:   auditRepo,
		db:          db,
		cfg:         cfg,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// List returns one page of the staff directory
func (s *StaffService) List(ctx context.Context, filters repository.StaffFilters, page int) (*domain.PaginatedResponse, error) {
	page, pageSize, _ := repository.Page(page, s.cfg.PageSize)

	staff, total, err := s.staffRepo.List(ctx, filters, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}

	dtos := make([]domain.StaffDTO, len(staff))
	for i := range staff {
		dtos[i] = mapper.ToStaffDTO(&staff[i])
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetByID returns a staff member with the tasks assigned to them
func (s *StaffService) GetByID(ctx context.Context, id uint) (*domain.StaffDetailDTO, error) {
	staff, err := s.get(ctx, s.staffRepo, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.taskRepo.ListAssignedTo(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	return &domain.StaffDetailDTO{
		StaffDTO:      mapper.ToStaffDTO(staff),
		AssignedTasks: mapper.ToTaskSummaryDTOs(tasks, domain.Today()),
	}, nil
}

func (s *StaffService) get(ctx context.Context, repo *repository.StaffRepository, id uint) (*domain.Staff, error) {
	staff, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	return staff, nil
}

// staffForm is a validated staff form ready to be written
type staffForm struct {
	input            *domain.StaffFormRequest
	createDepartment bool
	birthDate        time.Time
	hireDate         time.Time
	phone            string
	passwordHash     string
}

// validate runs every check of the staff form before anything is written.
// existing is nil on create; on edit its own identity is excluded from the
// uniqueness checks.
func (s *StaffService) validate(ctx context.Context, input *domain.StaffFormRequest, existing *domain.Staff) (*staffForm, error) {
	departments, err := s.deptRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count departments: %w", err)
	}

	verr := &ValidationError{}
	createDepartment, err := ValidateStaffForm(input, departments > 0)
	if err != nil {
		var formErr *ValidationError
		if !errors.As(err, &formErr) {
			return nil, err
		}
		verr = formErr
	}

	form := &staffForm{input: input, createDepartment: createDepartment}
	form.birthDate, _ = domain.ParseDate(input.BirthDate)
	form.hireDate, _ = domain.ParseDate(input.HireDate)

	if input.Phone != "" {
		phone, err := validation.NormalizePhone(input.Phone, s.cfg.PhoneRegion)
		if err != nil {
			verr.Add("phone", "Invalid phone number")
		}
		form.phone = phone
	}

	var excludeStaff, excludeAccount *uint
	if existing != nil {
		excludeStaff = &existing.ID
		excludeAccount = &existing.AccountID
	}

	taken, err := s.staffRepo.NationalIDTaken(ctx, strings.TrimSpace(input.NationalID), excludeStaff)
	if err != nil {
		return nil, fmt.Errorf("failed to check national id: %w", err)
	}
	if taken {
		verr.Add("nationalId", "A staff member with this national ID already exists")
	}

	taken, err = s.accountRepo.UsernameTaken(ctx, strings.TrimSpace(input.Username), excludeAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		verr.Add("username", "This username is already in use")
	}

	taken, err = s.accountRepo.EmailTaken(ctx, strings.TrimSpace(input.Email), excludeAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		verr.Add("email", "This email is already in use")
	}

	if !createDepartment && input.DepartmentID != nil {
		exists, err := s.deptRepo.Exists(ctx, *input.DepartmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to check department: %w", err)
		}
		if !exists {
			verr.Add("departmentId", "Department does not exist")
		}
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	password := input.Password
	if existing == nil && password == "" {
		password = s.cfg.TemporaryPassword
	}
	if password != "" {
		hash, err := auth.HashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		form.passwordHash = hash
	}
	return form, nil
}

// department returns the department id the staff record should reference,
// creating the new department first when the form asks for it
func (f *staffForm) department(ctx context.Context, deptRepo *repository.DepartmentRepository) (*uint, error) {
	if !f.createDepartment {
		return f.input.DepartmentID, nil
	}
	fullName := strings.TrimSpace(f.input.FirstName) + " " + strings.TrimSpace(f.input.LastName)
	department := &domain.Department{
		Name:        strings.TrimSpace(f.input.NewDepartmentName),
		Type:        f.input.NewDepartmentType,
		Description: "Created automatically for " + fullName,
	}
	if err := deptRepo.Create(ctx, department); err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return &department.ID, nil
}

// Create provisions a staff member with its account, and the new department
// when requested, in one transaction
func (s *StaffService) Create(ctx context.Context, input *domain.StaffFormRequest) (*domain.StaffDTO, error) {
	form, err := s.validate(ctx, input, nil)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.RoleStaff
	}

	var staffID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		departmentID, err := form.department(ctx, s.deptRepo.WithTx(tx))
		if err != nil {
			return err
		}

		account := &domain.Account{
			Username:     strings.TrimSpace(input.Username),
			Email:        strings.TrimSpace(input.Email),
			FirstName:    strings.TrimSpace(input.FirstName),
			LastName:     strings.TrimSpace(input.LastName),
			PasswordHash: form.passwordHash,
			Role:         role,
			IsActive:     true,
		}
		if err := s.accountRepo.WithTx(tx).Create(ctx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		staff := &domain.Staff{
			AccountID:         account.ID,
			NationalID:        strings.TrimSpace(input.NationalID),
			FirstName:         account.FirstName,
			LastName:          account.LastName,
			BirthDate:         form.birthDate,
			HireDate:          form.hireDate,
			DepartmentID:      departmentID,
			Phone:             form.phone,
			Address:           input.Address,
			AccountCreated:    true,
			TemporaryPassword: input.Password == "",
		}
		if err := s.staffRepo.WithTx(tx).Create(ctx, staff); err != nil {
			return fmt.Errorf("failed to create staff: %w", err)
		}
		staffID = staff.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("staff created",
		zap.Uint("staff_id", staffID),
		zap.String("username", input.Username),
		zap.Bool("department_created", form.createDepartment),
	)

	staff, err := s.get(ctx, s.staffRepo, staffID)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToStaffDTO(staff)
	return &dto, nil
}

// Update edits a staff member and its account in place. The password only
// changes when a new one is supplied.
func (s *StaffService) Update(ctx context.Context, id uint, input *domain.StaffFormRequest) (*domain.StaffDTO, error) {
	staff, err := s.get(ctx, s.staffRepo, id)
	if err != nil {
		return nil, err
	}
	form, err := s.validate(ctx, input, staff)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		departmentID, err := form.department(ctx, s.deptRepo.WithTx(tx))
		if err != nil {
			return err
		}

		accountRepo := s.accountRepo.WithTx(tx)
		account, err := accountRepo.GetByID(ctx, staff.AccountID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		account.Username = strings.TrimSpace(input.Username)
		account.Email = strings.TrimSpace(input.Email)
		account.FirstName = strings.TrimSpace(input.FirstName)
		account.LastName = strings.TrimSpace(input.LastName)
		if input.Role != "" {
			account.Role = input.Role
		}
		if form.passwordHash != "" {
			account.PasswordHash = form.passwordHash
		}
		if err := accountRepo.Update(ctx, account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}

		staff.NationalID = strings.TrimSpace(input.NationalID)
		staff.FirstName = account.FirstName
		staff.LastName = account.LastName
		staff.BirthDate = form.birthDate
		staff.HireDate = form.hireDate
		staff.DepartmentID = departmentID
		staff.Phone = form.phone
		staff.Address = input.Address
		staff.AccountCreated = true
		if err := s.staffRepo.WithTx(tx).Update(ctx, staff); err != nil {
			return fmt.Errorf("failed to update staff: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("staff updated", zap.Uint("staff_id", id), zap.Bool("password_changed", form.passwordHash != ""))

	updated, err := s.get(ctx, s.staffRepo, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToStaffDTO(updated)
	return &dto, nil
}

// Delete removes a staff member and its account. Weak references from
// departments and reassigned tasks are emptied. Staff still supervising or
// assigned to a task, or recorded as the actor of an audit entry, cannot be
// deleted.
func (s *StaffService) Delete(ctx context.Context, id uint) error {
	staff, err := s.get(ctx, s.staffRepo, id)
	if err != nil {
		return err
	}

	held, err := s.taskRepo.CountHeldBy(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count held tasks: %w", err)
	}
	audited, err := s.auditRepo.CountByStaff(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count audit entries: %w", err)
	}
	if held > 0 || audited > 0 {
		return fmt.Errorf("%w: %d tasks, %d audit entries", ErrStaffInUse, held, audited)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.deptRepo.WithTx(tx).ClearCoordinator(ctx, id); err != nil {
			return fmt.Errorf("failed to clear coordinator: %w", err)
		}
		taskRepo := s.taskRepo.WithTx(tx)
		if err := taskRepo.ClearReassigned(ctx, id); err != nil {
			return fmt.Errorf("failed to clear reassigned tasks: %w", err)
		}
		if err := taskRepo.RemoveParticipant(ctx, id); err != nil {
			return fmt.Errorf("failed to remove participations: %w", err)
		}
		if err := s.staffRepo.WithTx(tx).Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete staff: %w", err)
		}
		if err := s.accountRepo.WithTx(tx).Delete(ctx, staff.AccountID); err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("staff deleted", zap.Uint("staff_id", id), zap.Uint("account_id", staff.AccountID))
	return nil
}

// Export renders the whole filtered directory as a workbook
func (s *StaffService) Export(ctx context.Context, filters repository.StaffFilters) (*bytes.Buffer, error) {
	staff, err := s.staffRepo.ListAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	buf, err := export.StaffDirectory(staff)
	if err != nil {
		return nil, fmt.Errorf("failed to export staff: %w", err)
	}
	return buf, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/mapper"
	"github.com/planiapp/tareas-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DepartmentService struct {
	deptRepo  *repository.DepartmentRepository
	staffRepo *repository.StaffRepository
	db        *gorm.DB
	logger    *zap.Logger
}

func NewDepartmentService(
	deptRepo *repository.DepartmentRepository,
	staffRepo *repository.StaffRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *DepartmentService {
	return &DepartmentService{
		deptRepo:  deptRepo,
		staffRepo: staffRepo,
		db:        db,
		logger:    logger,
	}
}

func (s *DepartmentService) List(ctx context.Context) ([]domain.DepartmentDTO, error) {
	departments, err := s.deptRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	dtos := make([]domain.DepartmentDTO, len(departments))
	for i := range departments {
		dtos[i] = mapper.ToDepartmentDTO(&departments[i].Department, departments[i].StaffCount)
	}
	return dtos, nil
}

func (s *DepartmentService) GetByID(ctx context.Context, id uint) (*domain.DepartmentDTO, error) {
	department, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.deptRepo.CountStaff(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count department staff: %w", err)
	}
	dto := mapper.ToDepartmentDTO(department, count)
	return &dto, nil
}

func (s *DepartmentService) get(ctx context.Context, id uint) (*domain.Department, error) {
	department, err := s.deptRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return department, nil
}

func (s *DepartmentService) Create(ctx context.Context, req *domain.DepartmentRequest) (*domain.DepartmentDTO, error) {
	coordinator, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	department := &domain.Department{
		Name:          strings.TrimSpace(req.Name),
		Type:          req.Type,
		CoordinatorID: req.CoordinatorID,
		Description:   req.Description,
	}
	if err := s.deptRepo.Create(ctx, department); err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	department.Coordinator = coordinator

	s.logger.Info("department created", zap.Uint("department_id", department.ID), zap.String("name", department.Name))
	dto := mapper.ToDepartmentDTO(department, 0)
	return &dto, nil
}

func (s *DepartmentService) Update(ctx context.Context, id uint, req *domain.DepartmentRequest) (*domain.DepartmentDTO, error) {
	department, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	coordinator, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	department.Name = strings.TrimSpace(req.Name)
	department.Type = req.Type
	department.CoordinatorID = req.CoordinatorID
	department.Coordinator = coordinator
	department.Description = req.Description
	if err := s.deptRepo.Update(ctx, department); err != nil {
		return nil, fmt.Errorf("failed to update department: %w", err)
	}

	count, err := s.deptRepo.CountStaff(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count department staff: %w", err)
	}
	dto := mapper.ToDepartmentDTO(department, count)
	return &dto, nil
}

// Delete removes a department; its staff keep existing with no department
func (s *DepartmentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deptRepo := s.deptRepo.WithTx(tx)
		if err := deptRepo.DetachStaff(ctx, id); err != nil {
			return fmt.Errorf("failed to detach department staff: %w", err)
		}
		if err := deptRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete department: %w", err)
		}
		s.logger.Info("department deleted", zap.Uint("department_id", id))
		return nil
	})
}

func (s *DepartmentService) validate(ctx context.Context, req *domain.DepartmentRequest) (*domain.Staff, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(req.Name) == "" {
		verr.Add("name", "This field is required")
	}
	if !req.Type.IsValid() {
		verr.Add("type", "Invalid department type")
	}

	var coordinator *domain.Staff
	if req.CoordinatorID != nil {
		staff, err := s.staffRepo.GetByID(ctx, *req.CoordinatorID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			verr.Add("coordinatorId", "Staff member does not exist")
		case err != nil:
			return nil, fmt.Errorf("failed to get coordinator: %w", err)
		default:
			coordinator = staff
		}
	}
	return coordinator, verr.Err()
}

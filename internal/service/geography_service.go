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

type GeographyService struct {
	geoRepo  *repository.GeographyRepository
	taskRepo *repository.TaskRepository
	db       *gorm.DB
	logger   *zap.Logger
}

func NewGeographyService(
	geoRepo *repository.GeographyRepository,
	taskRepo *repository.TaskRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *GeographyService {
	return &GeographyService{
		geoRepo:  geoRepo,
		taskRepo: taskRepo,
		db:       db,
		logger:   logger,
	}
}

func (s *GeographyService) ListRegions(ctx context.Context) ([]domain.RegionDTO, error) {
	regions, err := s.geoRepo.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	dtos := make([]domain.RegionDTO, len(regions))
	for i := range regions {
		dtos[i] = mapper.ToRegionDTO(&regions[i])
	}
	return dtos, nil
}

func (s *GeographyService) CreateRegion(ctx context.Context, req *domain.CreateRegionRequest) (*domain.RegionDTO, error) {
	region := &domain.Region{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := s.geoRepo.CreateRegion(ctx, region); err != nil {
		return nil, fmt.Errorf("failed to create region: %w", err)
	}
	dto := mapper.ToRegionDTO(region)
	return &dto, nil
}

// DeleteRegion removes a region with its districts and localities.
// It is refused while any task is located in one of those districts.
func (s *GeographyService) DeleteRegion(ctx context.Context, id uint) error {
	if _, err := s.geoRepo.GetRegion(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRegionNotFound
		}
		return fmt.Errorf("failed to get region: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		geoRepo := s.geoRepo.WithTx(tx)
		districtIDs, err := geoRepo.DistrictIDsInRegion(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list region districts: %w", err)
		}
		inUse, err := s.taskRepo.WithTx(tx).CountInDistricts(ctx, districtIDs)
		if err != nil {
			return fmt.Errorf("failed to count region tasks: %w", err)
		}
		if inUse > 0 {
			return ErrRegionInUse
		}
		if err := geoRepo.DeleteRegion(ctx, id); err != nil {
			return fmt.Errorf("failed to delete region: %w", err)
		}
		s.logger.Info("region deleted", zap.Uint("region_id", id), zap.Int("districts", len(districtIDs)))
		return nil
	})
}

func (s *GeographyService) ListDistricts(ctx context.Context, regionID *uint) ([]domain.DistrictDTO, error) {
	districts, err := s.geoRepo.ListDistricts(ctx, regionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}
	dtos := make([]domain.DistrictDTO, len(districts))
	for i := range districts {
		dtos[i] = mapper.ToDistrictDTO(&districts[i])
	}
	return dtos, nil
}

func (s *GeographyService) CreateDistrict(ctx context.Context, req *domain.CreateDistrictRequest) (*domain.DistrictDTO, error) {
	verr := &ValidationError{}
	code := strings.TrimSpace(req.Code)

	region, err := s.geoRepo.GetRegion(ctx, req.RegionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to get region: %w", err)
		}
		verr.Add("regionId", "Region does not exist")
	}
	exists, err := s.geoRepo.DistrictCodeExists(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to check district code: %w", err)
	}
	if exists {
		verr.Add("code", "A district with this code already exists")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	district := &domain.District{
		RegionID: region.ID,
		Name:     strings.TrimSpace(req.Name),
		Code:     code,
	}
	if err := s.geoRepo.CreateDistrict(ctx, district); err != nil {
		return nil, fmt.Errorf("failed to create district: %w", err)
	}
	district.Region = region
	dto := mapper.ToDistrictDTO(district)
	return &dto, nil
}

func (s *GeographyService) ListLocalities(ctx context.Context, districtID uint) ([]domain.LocalityDTO, error) {
	if _, err := s.geoRepo.GetDistrict(ctx, districtID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDistrictNotFound
		}
		return nil, fmt.Errorf("failed to get district: %w", err)
	}
	localities, err := s.geoRepo.ListLocalities(ctx, districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to list localities: %w", err)
	}
	dtos := make([]domain.LocalityDTO, len(localities))
	for i := range localities {
		dtos[i] = mapper.ToLocalityDTO(&localities[i])
	}
	return dtos, nil
}

// CreateLocality adds a locality and copies the parent district code onto it
func (s *GeographyService) CreateLocality(ctx context.Context, req *domain.CreateLocalityRequest) (*domain.LocalityDTO, error) {
	code := strings.TrimSpace(req.Code)

	district, err := s.geoRepo.GetDistrict(ctx, req.DistrictID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Fields: map[string]string{"districtId": "District does not exist"}}
		}
		return nil, fmt.Errorf("failed to get district: %w", err)
	}
	exists, err := s.geoRepo.LocalityCodeExists(ctx, district.ID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to check locality code: %w", err)
	}
	if exists {
		return nil, &ValidationError{Fields: map[string]string{"code": "A locality with this code already exists in the district"}}
	}

	locality := &domain.Locality{
		DistrictID:   district.ID,
		Name:         strings.TrimSpace(req.Name),
		Code:         code,
		DistrictCode: district.Code,
	}
	if err := s.geoRepo.CreateLocality(ctx, locality); err != nil {
		return nil, fmt.Errorf("failed to create locality: %w", err)
	}
	dto := mapper.ToLocalityDTO(locality)
	return &dto, nil
}

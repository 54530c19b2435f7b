package repository

import (
	"context"

	"github.com/planiapp/tareas-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GeographyRepository struct {
	db *gorm.DB
}

func NewGeographyRepository(db *gorm.DB) *GeographyRepository {
	return &GeographyRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GeographyRepository) WithTx(tx *gorm.DB) *GeographyRepository {
	return &GeographyRepository{db: tx}
}

func (r *GeographyRepository) ListRegions(ctx context.Context) ([]domain.Region, error) {
	var regions []domain.Region
	err := r.db.WithContext(ctx).Order("name").Find(&regions).Error
	return regions, err
}

func (r *GeographyRepository) GetRegion(ctx context.Context, id uint) (*domain.Region, error) {
	var region domain.Region
	if err := r.db.WithContext(ctx).First(&region, id).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *GeographyRepository) CreateRegion(ctx context.Context, region *domain.Region) error {
	return r.db.WithContext(ctx).Create(region).Error
}

// DeleteRegion removes the region with its districts and their localities
func (r *GeographyRepository) DeleteRegion(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	districtIDs := db.Model(&domain.District{}).Select("id").Where("region_id = ?", id)
	if err := db.Where("district_id IN (?)", districtIDs).Delete(&domain.Locality{}).Error; err != nil {
		return err
	}
	if err := db.Where("region_id = ?", id).Delete(&domain.District{}).Error; err != nil {
		return err
	}
	return db.Delete(&domain.Region{}, id).Error
}

// DistrictIDsInRegion returns the ids of the region's districts
func (r *GeographyRepository) DistrictIDsInRegion(ctx context.Context, regionID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&domain.District{}).Where("region_id = ?", regionID).Pluck("id", &ids).Error
	return ids, err
}

func (r *GeographyRepository) ListDistricts(ctx context.Context, regionID *uint) ([]domain.District, error) {
	var districts []domain.District
	query := r.db.WithContext(ctx).Preload("Region")
	if regionID != nil {
		query = query.Where("region_id = ?", *regionID)
	}
	err := query.Order("name").Find(&districts).Error
	return districts, err
}

func (r *GeographyRepository) GetDistrict(ctx context.Context, id uint) (*domain.District, error) {
	var district domain.District
	if err := r.db.WithContext(ctx).First(&district, id).Error; err != nil {
		return nil, err
	}
	return &district, nil
}

func (r *GeographyRepository) DistrictCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.District{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *GeographyRepository) CreateDistrict(ctx context.Context, district *domain.District) error {
	return r.db.WithContext(ctx).Create(district).Error
}

func (r *GeographyRepository) ListLocalities(ctx context.Context, districtID uint) ([]domain.Locality, error) {
	var localities []domain.Locality
	err := r.db.WithContext(ctx).Where("district_id = ?", districtID).Order("name").Find(&localities).Error
	return localities, err
}

func (r *GeographyRepository) GetLocality(ctx context.Context, id uint) (*domain.Locality, error) {
	var locality domain.Locality
	if err := r.db.WithContext(ctx).First(&locality, id).Error; err != nil {
		return nil, err
	}
	return &locality, nil
}

func (r *GeographyRepository) LocalityCodeExists(ctx context.Context, districtID uint, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Locality{}).
		Where("district_id = ? AND code = ?", districtID, code).
		Count(&count).Error
	return count > 0, err
}

func (r *GeographyRepository) CreateLocality(ctx context.Context, locality *domain.Locality) error {
	return r.db.WithContext(ctx).Create(locality).Error
}

// UpsertRegion finds a region by name or creates it
func (r *GeographyRepository) UpsertRegion(ctx context.Context, region *domain.Region) error {
	return r.db.WithContext(ctx).
		Where(domain.Region{Name: region.Name}).
		Attrs(domain.Region{Description: region.Description}).
		FirstOrCreate(region).Error
}

// UpsertDistrict inserts or updates a district keyed by its code
func (r *GeographyRepository) UpsertDistrict(ctx context.Context, district *domain.District) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "region_id"}),
	}).Create(district).Error
}

// UpsertLocality inserts or updates a locality keyed by (district, code)
func (r *GeographyRepository) UpsertLocality(ctx context.Context, locality *domain.Locality) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "district_id"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "district_code"}),
	}).Create(locality).Error
}

func (r *GeographyRepository) GetDistrictByCode(ctx context.Context, code string) (*domain.District, error) {
	var district domain.District
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&district).Error; err != nil {
		return nil, err
	}
	return &district, nil
}

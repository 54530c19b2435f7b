package service

import (
	"context"
	"fmt"
	"time"

	"github.com/planiapp/tareas-api/internal/catalog"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GeographySource provides the catalog entries to synchronize
type GeographySource interface {
	FetchGeography(ctx context.Context) ([]catalog.Entry, error)
}

// CatalogSyncService upserts the geography catalog into the local tables.
// Regions are matched by name, districts by code and localities by
// (district, code). Nothing is ever deleted.
type CatalogSyncService struct {
	source  GeographySource
	geoRepo *repository.GeographyRepository
	db      *gorm.DB
	logger  *zap.Logger
}

func NewCatalogSyncService(source GeographySource, geoRepo *repository.GeographyRepository, db *gorm.DB, logger *zap.Logger) *CatalogSyncService {
	return &CatalogSyncService{
		source:  source,
		geoRepo: geoRepo,
		db:      db,
		logger:  logger,
	}
}

// SyncGeography reads the catalog and upserts every valid entry in one
// transaction. It returns the number of localities written and of entries skipped.
func (s *CatalogSyncService) SyncGeography(ctx context.Context) (int, int, error) {
	start := time.Now()
	entries, err := s.source.FetchGeography(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read geography catalog: %w", err)
	}

	synced, skipped := 0, 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		geoRepo := s.geoRepo.WithTx(tx)
		regions := map[string]uint{}
		districts := map[string]uint{}

		for _, e := range entries {
			if !e.Valid() {
				skipped++
				continue
			}

			regionID, ok := regions[e.RegionName]
			if !ok {
				region := &domain.Region{Name: e.RegionName}
				if err := geoRepo.UpsertRegion(ctx, region); err != nil {
					return fmt.Errorf("failed to upsert region %s: %w", e.RegionName, err)
				}
				regionID = region.ID
				regions[e.RegionName] = regionID
			}

			districtID, ok := districts[e.DistrictCode]
			if !ok {
				district := &domain.District{RegionID: regionID, Name: e.DistrictName, Code: e.DistrictCode}
				if err := geoRepo.UpsertDistrict(ctx, district); err != nil {
					return fmt.Errorf("failed to upsert district %s: %w", e.DistrictCode, err)
				}
				// the conflict path does not return the existing id on every driver
				stored, err := geoRepo.GetDistrictByCode(ctx, e.DistrictCode)
				if err != nil {
					return fmt.Errorf("failed to reload district %s: %w", e.DistrictCode, err)
				}
				districtID = stored.ID
				districts[e.DistrictCode] = districtID
			}

			locality := &domain.Locality{
				DistrictID:   districtID,
				Name:         e.LocalityName,
				Code:         e.LocalityCode,
				DistrictCode: e.DistrictCode,
			}
			if err := geoRepo.UpsertLocality(ctx, locality); err != nil {
				return fmt.Errorf("failed to upsert locality %s/%s: %w", e.DistrictCode, e.LocalityCode, err)
			}
			synced++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	s.logger.Info("geography catalog synchronized",
		zap.Int("localities", synced),
		zap.Int("skipped", skipped),
		zap.Duration("duration", time.Since(start)),
	)
	return synced, skipped, nil
}

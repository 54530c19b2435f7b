package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/mapper"
	"github.com/planiapp/tareas-api/internal/repository"
	"github.com/planiapp/tareas-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const logoFolder = "logos"

// LogoContentTypes are the accepted logo upload types
var LogoContentTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/svg+xml": ".svg",
}

// CanCreateOrganization decides whether actor may create an organization
// when existing organizations are already stored. The first one needs the
// organization:manage permission; any further one needs a superuser.
func CanCreateOrganization(existing int64, actor *auth.UserContext) bool {
	if actor == nil {
		return false
	}
	if existing == 0 {
		return actor.HasPermission(auth.PermissionOrganizationManage)
	}
	return actor.IsSuperuser()
}

type OrganizationService struct {
	orgRepo *repository.OrganizationRepository
	store   storage.Storage
	logger  *zap.Logger
}

func NewOrganizationService(orgRepo *repository.OrganizationRepository, store storage.Storage, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{
		orgRepo: orgRepo,
		store:   store,
		logger:  logger,
	}
}

// Current returns the configured organization, or nil when none exists
func (s *OrganizationService) Current(ctx context.Context) (*domain.OrganizationDTO, error) {
	org, err := s.orgRepo.First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return mapper.ToOrganizationDTO(org), nil
}

func (s *OrganizationService) GetByID(ctx context.Context, id uint) (*domain.OrganizationDTO, error) {
	org, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapper.ToOrganizationDTO(org), nil
}

func (s *OrganizationService) get(ctx context.Context, id uint) (*domain.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

func (s *OrganizationService) Create(ctx context.Context, actor *auth.UserContext, req *domain.OrganizationRequest) (*domain.OrganizationDTO, error) {
	existing, err := s.orgRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count organizations: %w", err)
	}
	if !CanCreateOrganization(existing, actor) {
		if existing > 0 {
			return nil, ErrOrganizationExists
		}
		return nil, ErrPermissionDenied
	}

	org := &domain.Organization{}
	applyOrganizationRequest(org, req)
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	s.logger.Info("organization created",
		zap.Uint("organization_id", org.ID),
		zap.String("actor", actor.Username),
		zap.Int64("previously_existing", existing),
	)
	return mapper.ToOrganizationDTO(org), nil
}

func (s *OrganizationService) Update(ctx context.Context, id uint, req *domain.OrganizationRequest) (*domain.OrganizationDTO, error) {
	org, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyOrganizationRequest(org, req)
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return mapper.ToOrganizationDTO(org), nil
}

// Delete removes an organization. Only a superuser may do so.
func (s *OrganizationService) Delete(ctx context.Context, actor *auth.UserContext, id uint) error {
	if actor == nil || !actor.IsSuperuser() {
		return ErrPermissionDenied
	}
	org, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.orgRepo.Delete(ctx, org.ID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if org.LogoPath != "" {
		if err := s.store.Delete(ctx, org.LogoPath); err != nil {
			s.logger.Warn("failed to delete organization logo", zap.String("key", org.LogoPath), zap.Error(err))
		}
	}
	s.logger.Info("organization deleted", zap.Uint("organization_id", id), zap.String("actor", actor.Username))
	return nil
}

// UploadLogo stores a new logo and replaces the previous one
func (s *OrganizationService) UploadLogo(ctx context.Context, id uint, contentType string, data io.Reader) (*domain.OrganizationDTO, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := LogoContentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}

	org, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	key, size, err := s.store.Put(ctx, logoFolder, "logo"+ext, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store logo: %w", err)
	}

	previous := org.LogoPath
	org.LogoPath = key
	if err := s.orgRepo.Update(ctx, org); err != nil {
		_ = s.store.Delete(ctx, key)
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	if previous != "" {
		if err := s.store.Delete(ctx, previous); err != nil {
			s.logger.Warn("failed to delete previous logo", zap.String("key", previous), zap.Error(err))
		}
	}

	s.logger.Info("organization logo uploaded",
		zap.Uint("organization_id", id),
		zap.String("key", key),
		zap.Int64("size", size),
	)
	return mapper.ToOrganizationDTO(org), nil
}

// Logo opens the stored logo of an organization
func (s *OrganizationService) Logo(ctx context.Context, id uint) (io.ReadCloser, string, error) {
	org, err := s.get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if org.LogoPath == "" {
		return nil, "", ErrNotFound
	}
	rc, err := s.store.Get(ctx, org.LogoPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open logo: %w", err)
	}
	return rc, logoContentType(org.LogoPath), nil
}

func logoContentType(key string) string {
	for contentType, ext := range LogoContentTypes {
		if strings.HasSuffix(key, ext) {
			return contentType
		}
	}
	return "application/octet-stream"
}

func applyOrganizationRequest(org *domain.Organization, req *domain.OrganizationRequest) {
	org.Name = strings.TrimSpace(req.Name)
	org.Address = req.Address
	org.Phone = req.Phone
	org.Email = req.Email
	org.Website = req.Website
}

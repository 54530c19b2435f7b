package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/service"
	"go.uber.org/zap"
)

// logoFormField is the multipart field carrying the logo file
const logoFormField = "logo"

type OrganizationHandler struct {
	organizationService *service.OrganizationService
	validate            *validator.Validate
	maxUploadBytes      int64
	logger              *zap.Logger
}

func NewOrganizationHandler(
	organizationService *service.OrganizationService,
	validate *validator.Validate,
	maxUploadBytes int64,
	logger *zap.Logger,
) *OrganizationHandler {
	return &OrganizationHandler{
		organizationService: organizationService,
		validate:            validate,
		maxUploadBytes:      maxUploadBytes,
		logger:              logger,
	}
}

// Current godoc
// @Summary Get the organization
// @Description Returns null when no organization has been configured.
// @Tags Organization
// @Produce json
// @Success 200 {object} domain.OrganizationDTO
// @Router /organizacion/ [get]
func (h *OrganizationHandler) Current(w http.ResponseWriter, r *http.Request) {
	org, err := h.organizationService.Current(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get organization")
		return
	}
	respondJSON(w, http.StatusOK, org)
}

// Create godoc
// @Summary Create the organization
// @Description The first organization requires organization:manage. While one exists, only a superuser may create another.
// @Tags Organization
// @Accept json
// @Produce json
// @Param request body domain.OrganizationRequest true "Organization data"
// @Success 201 {object} domain.OrganizationDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /organizacion/nueva/ [post]
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.OrganizationRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	actor, _ := auth.FromContext(r.Context())
	org, err := h.organizationService.Create(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to create organization")
		return
	}
	respondJSON(w, http.StatusCreated, org)
}

// Update godoc
// @Summary Update the organization
// @Tags Organization
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body domain.OrganizationRequest true "Organization data"
// @Success 200 {object} domain.OrganizationDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /organizacion/{id}/editar/ [post]
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.OrganizationRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	org, err := h.organizationService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to update organization")
		return
	}
	respondJSON(w, http.StatusOK, org)
}

// Delete godoc
// @Summary Delete the organization
// @Description Superuser only.
// @Tags Organization
// @Param id path int true "Organization ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /organizacion/{id}/eliminar/ [post]
func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := auth.FromContext(r.Context())
	if err := h.organizationService.Delete(r.Context(), actor, id); err != nil {
		respondServiceError(w, r, h.logger, err, "failed to delete organization")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadLogo godoc
// @Summary Upload the organization logo
// @Description Accepts image/png, image/jpeg and image/svg+xml up to the configured size.
// @Tags Organization
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Organization ID"
// @Param logo formData file true "Logo image"
// @Success 200 {object} domain.OrganizationDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Failure 415 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /organizacion/{id}/logo/ [post]
func (h *OrganizationHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "logo exceeds the maximum upload size")
			return
		}
		respondWithError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile(logoFormField)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "missing logo file")
		return
	}
	defer file.Close()

	org, err := h.organizationService.UploadLogo(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to upload logo")
		return
	}
	respondJSON(w, http.StatusOK, org)
}

// Logo godoc
// @Summary Get the organization logo
// @Tags Organization
// @Produce image/png,image/jpeg,image/svg+xml
// @Param id path int true "Organization ID"
// @Success 200 {file} file
// @Failure 404 {object} domain.APIError
// @Router /organizacion/{id}/logo/ [get]
func (h *OrganizationHandler) Logo(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc, contentType, err := h.organizationService.Logo(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get logo")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

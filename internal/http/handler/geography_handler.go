package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/service"
	"go.uber.org/zap"
)

type GeographyHandler struct {
	geographyService *service.GeographyService
	validate         *validator.Validate
	logger           *zap.Logger
}

func NewGeographyHandler(geographyService *service.GeographyService, validate *validator.Validate, logger *zap.Logger) *GeographyHandler {
	return &GeographyHandler{
		geographyService: geographyService,
		validate:         validate,
		logger:           logger,
	}
}

// @Summary List regions
// @Tags Geography
// @Produce json
// @Success 200 {array} domain.RegionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /estados/ [get]
func (h *GeographyHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.geographyService.ListRegions(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to list regions")
		return
	}
	respondJSON(w, http.StatusOK, regions)
}

// @Summary Create region
// @Tags Geography
// @Accept json
// @Produce json
// @Param request body domain.CreateRegionRequest true "Region data"
// @Success 201 {object} domain.RegionDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /estados/nuevo/ [post]
func (h *GeographyHandler) CreateRegion(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRegionRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	region, err := h.geographyService.CreateRegion(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to create region")
		return
	}
	respondJSON(w, http.StatusCreated, region)
}

// @Summary Delete region
// @Description Deletes its districts and localities too. Refused with 409 while a task references any of them.
// @Tags Geography
// @Param id path int true "Region ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /estados/{id}/eliminar/ [post]
func (h *GeographyHandler) DeleteRegion(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.geographyService.DeleteRegion(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "failed to delete region")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary List districts
// @Tags Geography
// @Produce json
// @Param estado query int false "Region ID"
// @Success 200 {array} domain.DistrictDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /municipios/ [get]
func (h *GeographyHandler) ListDistricts(w http.ResponseWriter, r *http.Request) {
	regionID, err := queryUint(r, "estado")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	districts, err := h.geographyService.ListDistricts(r.Context(), regionID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to list districts")
		return
	}
	respondJSON(w, http.StatusOK, districts)
}

// @Summary Create district
// @Tags Geography
// @Accept json
// @Produce json
// @Param request body domain.CreateDistrictRequest true "District data"
// @Success 201 {object} domain.DistrictDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /municipios/nuevo/ [post]
func (h *GeographyHandler) CreateDistrict(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDistrictRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	district, err := h.geographyService.CreateDistrict(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to create district")
		return
	}
	respondJSON(w, http.StatusCreated, district)
}

// @Summary List localities of a district
// @Tags Geography
// @Produce json
// @Param id path int true "District ID"
// @Success 200 {array} domain.LocalityDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /municipios/{id}/parroquias/ [get]
func (h *GeographyHandler) ListLocalities(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	localities, err := h.geographyService.ListLocalities(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to list localities")
		return
	}
	respondJSON(w, http.StatusOK, localities)
}

// @Summary Create locality
// @Description The district code is copied onto the locality.
// @Tags Geography
// @Accept json
// @Produce json
// @Param request body domain.CreateLocalityRequest true "Locality data"
// @Success 201 {object} domain.LocalityDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /parroquias/nueva/ [post]
func (h *GeographyHandler) CreateLocality(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLocalityRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	locality, err := h.geographyService.CreateLocality(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to create locality")
		return
	}
	respondJSON(w, http.StatusCreated, locality)
}

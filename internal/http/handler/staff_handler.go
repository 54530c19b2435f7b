package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/repository"
	"github.com/planiapp/tareas-api/internal/service"
	"go.uber.org/zap"
)

type StaffHandler struct {
	staffService *service.StaffService
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewStaffHandler(staffService *service.StaffService, validate *validator.Validate, logger *zap.Logger) *StaffHandler {
	return &StaffHandler{
		staffService: staffService,
		validate:     validate,
		logger:       logger,
	}
}

// staffFilters reads the directory filters: query matches names, national
// id and username; dependencia narrows to one department
func staffFilters(r *http.Request) (repository.StaffFilters, error) {
	deptID, err := queryUint(r, "dependencia")
	if err != nil {
		return repository.StaffFilters{}, err
	}
	return repository.StaffFilters{
		Query:        strings.TrimSpace(r.URL.Query().Get("query")),
		DepartmentID: deptID,
	}, nil
}

// List godoc
// @Summary List staff
// @Tags Staff
// @Produce json
// @Param query query string false "Search first name, last name, national id or username"
// @Param dependencia query int false "Department ID"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.StaffDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /personal/ [get]
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := staffFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.staffService.List(r.Context(), filters, queryInt(r, "page", 1))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to list staff")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get staff member
// @Description Includes department, account and the tasks assigned to the staff member.
// @Tags Staff
// @Produce json
// @Param id path int true "Staff ID"
// @Success 200 {object} domain.StaffDetailDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /personal/{id}/ [get]
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	staff, err := h.staffService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get staff")
		return
	}
	respondJSON(w, http.StatusOK, staff)
}

// Create godoc
// @Summary Create staff member
// @Description Creates the staff member and its login account in one step. Without a password the configured temporary password is set and flagged. When no department exists yet, createDepartment with newDepartmentName and newDepartmentType is required.
// @Tags Staff
// @Accept json
// @Produce json
// @Param request body domain.StaffFormRequest true "Staff data"
// @Success 201 {object} domain.StaffDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /personal/nuevo/ [post]
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.StaffFormRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	staff, err := h.staffService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to create staff")
		return
	}
	respondJSON(w, http.StatusCreated, staff)
}

// Update godoc
// @Summary Update staff member
// @Description Uniqueness of national id, username and email is checked against everyone except this staff member.
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path int true "Staff ID"
// @Param request body domain.StaffFormRequest true "Staff data"
// @Success 200 {object} domain.StaffDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /personal/{id}/editar/ [post]
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.StaffFormRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	staff, err := h.staffService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to update staff")
		return
	}
	respondJSON(w, http.StatusOK, staff)
}

// Delete godoc
// @Summary Delete staff member
// @Description Refused with 409 while tasks or audit entries reference the staff member.
// @Tags Staff
// @Param id path int true "Staff ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /personal/{id}/eliminar/ [post]
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.staffService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "failed to delete staff")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export godoc
// @Summary Export staff directory
// @Tags Staff
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param query query string false "Search"
// @Param dependencia query int false "Department ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /personal/exportar/ [get]
func (h *StaffHandler) Export(w http.ResponseWriter, r *http.Request) {
	filters, err := staffFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	buf, err := h.staffService.Export(r.Context(), filters)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to export staff")
		return
	}
	respondXLSX(w, "personal.xlsx", buf)
}

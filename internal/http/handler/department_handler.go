package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/service"
	"go.uber.org/zap"
)

type DepartmentHandler struct {
	departmentService *service.DepartmentService
	validate          *validator.Validate
	logger            *zap.Logger
}

func NewDepartmentHandler(departmentService *service.DepartmentService, validate *validator.Validate, logger *zap.Logger) *DepartmentHandler {
	return &DepartmentHandler{
		departmentService: departmentService,
		validate:          validate,
		logger:            logger,
	}
}

// @Summary List departments
// @Tags Departments
// @Produce json
// @Success 200 {array} domain.DepartmentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dependencia/ [get]
func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	departments, err := h.departmentService.List(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to list departments")
		return
	}
	respondJSON(w, http.StatusOK, departments)
}

// @Summary Get department
// @Tags Departments
// @Produce json
// @Param id path int true "Department ID"
// @Success 200 {object} domain.DepartmentDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dependencia/{id}/ [get]
func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	department, err := h.departmentService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get department")
		return
	}
	respondJSON(w, http.StatusOK, department)
}

// @Summary Create department
// @Tags Departments
// @Accept json
// @Produce json
// @Param request body domain.DepartmentRequest true "Department data"
// @Success 201 {object} domain.DepartmentDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dependencia/nueva/ [post]
func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.DepartmentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	department, err := h.departmentService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to create department")
		return
	}
	respondJSON(w, http.StatusCreated, department)
}

// @Summary Update department
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path int true "Department ID"
// @Param request body domain.DepartmentRequest true "Department data"
// @Success 200 {object} domain.DepartmentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dependencia/{id}/editar/ [post]
func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.DepartmentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	department, err := h.departmentService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to update department")
		return
	}
	respondJSON(w, http.StatusOK, department)
}

// @Summary Delete department
// @Description Staff of the department are left without a department.
// @Tags Departments
// @Param id path int true "Department ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dependencia/{id}/eliminar/ [post]
func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.departmentService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "failed to delete department")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

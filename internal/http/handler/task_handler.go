package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/service"
	"go.uber.org/zap"
)

type TaskHandler struct {
	taskService *service.TaskService
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewTaskHandler(taskService *service.TaskService, validate *validator.Validate, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validate:    validate,
		logger:      logger,
	}
}

// taskFilters reads the list filters shared by the list and the export
func taskFilters(r *http.Request) (service.TaskListFilters, error) {
	var f service.TaskListFilters
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		s := domain.TaskStatus(v)
		if !s.IsValid() {
			return f, fmt.Errorf("invalid status: %q", v)
		}
		f.Status = &s
	}
	if v := q.Get("priority"); v != "" {
		p := domain.TaskPriority(v)
		if !p.IsValid() {
			return f, fmt.Errorf("invalid priority: %q", v)
		}
		f.Priority = &p
	}
	if v := q.Get("category"); v != "" {
		c := domain.TaskCategory(v)
		if !c.IsValid() {
			return f, fmt.Errorf("invalid category: %q", v)
		}
		f.Category = &c
	}

	var err error
	if f.DistrictID, err = queryUint(r, "district"); err != nil {
		return f, err
	}
	if f.AssignedStaffID, err = queryUint(r, "assignedStaff"); err != nil {
		return f, err
	}
	if f.Overdue, err = queryBool(r, "overdue"); err != nil {
		return f, err
	}
	hidden, err := queryBool(r, "includeHidden")
	if err != nil {
		return f, err
	}
	f.IncludeHidden = hidden != nil && *hidden
	mine, err := queryBool(r, "mine")
	if err != nil {
		return f, err
	}
	f.Mine = mine != nil && *mine
	return f, nil
}

// List godoc
// @Summary List tasks
// @Description Ordered by creation, newest first. Hidden tasks are only included with includeHidden=true for actors that manage tasks.
// @Tags Tasks
// @Produce json
// @Param status query string false "Status" Enums(pending, in_progress, completed, rejected)
// @Param priority query string false "Priority" Enums(normal, urgent, priority)
// @Param category query string false "Category" Enums(administrative, operational, technical, logistic, other)
// @Param district query int false "District ID"
// @Param assignedStaff query int false "Assigned staff ID"
// @Param overdue query bool false "Only overdue (true) or not overdue (false)"
// @Param includeHidden query bool false "Include hidden tasks"
// @Param mine query bool false "Only tasks involving the caller"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(10)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.TaskSummaryDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tareas/ [get]
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := taskFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := auth.FromContext(r.Context())
	result, err := h.taskService.List(r.Context(), actor, filters, queryInt(r, "page", 1), queryInt(r, "pageSize", 0))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to list tasks")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get task
// @Tags Tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} domain.TaskDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tareas/{id}/ [get]
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.taskService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// History godoc
// @Summary Get task audit history
// @Description Entries newest first.
// @Tags Tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {array} domain.AuditEntryDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tareas/{id}/bitacora/ [get]
func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.taskService.History(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get task history")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Create godoc
// @Summary Create task
// @Description New tasks are always pending. A creation audit entry is written in the same transaction.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body domain.CreateTaskRequest true "Task data"
// @Success 201 {object} domain.TaskDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /tareas/nueva/ [post]
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTaskRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	actor, _ := auth.FromContext(r.Context())
	task, err := h.taskService.Create(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to create task")
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// Update godoc
// @Summary Update task
// @Description Only fields present in the body change. Completed and rejected tasks cannot be edited.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body domain.UpdateTaskRequest true "Changed fields"
// @Success 200 {object} domain.TaskDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /tareas/{id}/editar/ [post]
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.UpdateTaskRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	actor, _ := auth.FromContext(r.Context())
	task, err := h.taskService.Update(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to update task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Start godoc
// @Summary Start task
// @Tags Tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} domain.TaskDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /tareas/{id}/iniciar/ [post]
func (h *TaskHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "start", h.taskService.Start)
}

// Complete godoc
// @Summary Complete task
// @Description Requires an in-progress task at 100% progress. Sets the actual end date to today.
// @Tags Tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} domain.TaskDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /tareas/{id}/completar/ [post]
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "complete", h.taskService.Complete)
}

func (h *TaskHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	fn func(ctx context.Context, actor *auth.UserContext, id uint) (*domain.TaskDTO, error),
) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := auth.FromContext(r.Context())
	task, err := fn(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to "+name+" task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Reject godoc
// @Summary Reject task
// @Description Stores the reason as the non-completion reason.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body domain.RejectTaskRequest true "Reason"
// @Success 200 {object} domain.TaskDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /tareas/{id}/rechazar/ [post]
func (h *TaskHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.RejectTaskRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	actor, _ := auth.FromContext(r.Context())
	task, err := h.taskService.Reject(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to reject task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Reassign godoc
// @Summary Reassign task
// @Description The previous assignee is kept as reassigned staff. Allowed for task managers and the task's supervisor.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body domain.ReassignTaskRequest true "New assignee"
// @Success 200 {object} domain.TaskDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /tareas/{id}/reasignar/ [post]
func (h *TaskHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.ReassignTaskRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	actor, _ := auth.FromContext(r.Context())
	task, err := h.taskService.Reassign(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to reassign task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Export godoc
// @Summary Export task report
// @Description Same filters as the list, without pagination.
// @Tags Tasks
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Status"
// @Param priority query string false "Priority"
// @Param category query string false "Category"
// @Param district query int false "District ID"
// @Param assignedStaff query int false "Assigned staff ID"
// @Param overdue query bool false "Overdue"
// @Param includeHidden query bool false "Include hidden tasks"
// @Success 200 {file} file
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tareas/exportar/ [get]
func (h *TaskHandler) Export(w http.ResponseWriter, r *http.Request) {
	filters, err := taskFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := auth.FromContext(r.Context())
	buf, err := h.taskService.Export(r.Context(), actor, filters)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to export tasks")
		return
	}
	respondXLSX(w, "tareas.xlsx", buf)
}

package handler

import (
	"net/http"

	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/logger"
	"github.com/planiapp/tareas-api/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// @Summary Get dashboard
// @Description Task counts by status, active urgent tasks, active tasks due within the configured window and counts per category.
// @Description
// @Description When any aggregate cannot be computed the body is `{"degraded": true, "error": "..."}` with status 200.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.DashboardDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/ [get]
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.dashboardService.Compute(r.Context())
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("failed to compute dashboard", zap.Error(err))
		respondJSON(w, http.StatusOK, domain.DegradedDashboardDTO{
			Degraded: true,
			Error:    "dashboard data is temporarily unavailable",
		})
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

package handler

import (
	"net/http"

	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/logger"
	"github.com/planiapp/tareas-api/internal/service"
	"go.uber.org/zap"
)

// DashboardPath is where authenticated visitors of the root are sent
const DashboardPath = "/dashboard/"

type HomeHandler struct {
	appName             string
	organizationService *service.OrganizationService
	logger              *zap.Logger
}

func NewHomeHandler(appName string, organizationService *service.OrganizationService, logger *zap.Logger) *HomeHandler {
	return &HomeHandler{
		appName:             appName,
		organizationService: organizationService,
		logger:              logger,
	}
}

// @Summary Home
// @Description Authenticated callers are redirected to the dashboard. Anonymous callers get the application name and the organization, which is null until one is configured.
// @Tags Home
// @Produce json
// @Success 200 {object} domain.HomeDTO
// @Success 302 "Redirect to /dashboard/"
// @Router / [get]
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, DashboardPath, http.StatusFound)
		return
	}

	org, err := h.organizationService.Current(r.Context())
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Warn("failed to load organization for home", zap.Error(err))
		org = nil
	}
	respondJSON(w, http.StatusOK, domain.HomeDTO{
		Application:  h.appName,
		Organization: org,
	})
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/http/handler"
	"github.com/planiapp/tareas-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/planiapp/tareas-api/docs" // Import generated swagger docs
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Home         *handler.HomeHandler
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Dashboard    *handler.DashboardHandler
	Staff        *handler.StaffHandler
	Department   *handler.DepartmentHandler
	Task         *handler.TaskHandler
	Geography    *handler.GeographyHandler
	Organization *handler.OrganizationHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := rt.handlers
	am := rt.authMiddleware
	perm := am.RequirePermission

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", h.Health.Health)
	r.Get("/health/db", h.Health.Database)
	r.Get("/health/ready", h.Health.Ready)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(rt.cfg.Server.RequestTimeoutDuration()))

		r.With(am.OptionalAuthenticate).Get("/", h.Home.Home)

		// Public organization data shown on the home page
		r.Get("/organizacion/", h.Organization.Current)
		r.Get("/organizacion/{id}/logo/", h.Organization.Logo)

		r.With(rt.rateLimiter.LimitLogin).Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(am.Authenticate)

			r.Get("/auth/me", h.Auth.Me)
			r.Post("/auth/password", h.Auth.ChangePassword)

			r.Get("/dashboard/", h.Dashboard.Get)

			r.Route("/personal", func(r chi.Router) {
				r.With(perm(auth.PermissionStaffRead)).Get("/", h.Staff.List)
				r.With(perm(auth.PermissionReportsExport)).Get("/exportar/", h.Staff.Export)
				r.With(perm(auth.PermissionStaffCreate)).Post("/nuevo/", h.Staff.Create)
				r.With(perm(auth.PermissionStaffRead)).Get("/{id}/", h.Staff.Get)
				r.With(perm(auth.PermissionStaffEdit)).Post("/{id}/editar/", h.Staff.Update)
				r.With(perm(auth.PermissionStaffDelete)).Post("/{id}/eliminar/", h.Staff.Delete)
			})

			r.Route("/dependencia", func(r chi.Router) {
				r.With(perm(auth.PermissionStaffRead)).Get("/", h.Department.List)
				r.With(perm(auth.PermissionDepartmentsWrite)).Post("/nueva/", h.Department.Create)
				r.With(perm(auth.PermissionStaffRead)).Get("/{id}/", h.Department.Get)
				r.With(perm(auth.PermissionDepartmentsWrite)).Post("/{id}/editar/", h.Department.Update)
				r.With(perm(auth.PermissionDepartmentsWrite)).Post("/{id}/eliminar/", h.Department.Delete)
			})

			r.Route("/tareas", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(perm(auth.PermissionTasksRead))
					r.Get("/", h.Task.List)
					r.Get("/{id}/", h.Task.Get)
				})
				r.With(perm(auth.PermissionReportsExport)).Get("/exportar/", h.Task.Export)
				r.With(perm(auth.PermissionAuditRead)).Get("/{id}/bitacora/", h.Task.History)

				r.Group(func(r chi.Router) {
					r.Use(perm(auth.PermissionTasksWrite))
					r.Post("/nueva/", h.Task.Create)
					r.Post("/{id}/editar/", h.Task.Update)
					r.Post("/{id}/iniciar/", h.Task.Start)
					r.Post("/{id}/completar/", h.Task.Complete)
					r.Post("/{id}/rechazar/", h.Task.Reject)
					r.Post("/{id}/reasignar/", h.Task.Reassign)
				})
			})

			r.Get("/estados/", h.Geography.ListRegions)
			r.Get("/municipios/", h.Geography.ListDistricts)
			r.Get("/municipios/{id}/parroquias/", h.Geography.ListLocalities)
			r.Group(func(r chi.Router) {
				r.Use(perm(auth.PermissionGeographyWrite))
				r.Post("/estados/nuevo/", h.Geography.CreateRegion)
				r.Post("/estados/{id}/eliminar/", h.Geography.DeleteRegion)
				r.Post("/municipios/nuevo/", h.Geography.CreateDistrict)
				r.Post("/parroquias/nueva/", h.Geography.CreateLocality)
			})

			// Creation is guarded by the service: the first organization needs
			// organization:manage, any further one a superuser
			r.Post("/organizacion/nueva/", h.Organization.Create)
			r.With(perm(auth.PermissionOrganizationManage)).Post("/organizacion/{id}/editar/", h.Organization.Update)
			r.With(perm(auth.PermissionOrganizationManage)).Post("/organizacion/{id}/logo/", h.Organization.UploadLogo)
			r.With(am.RequireSuperuser).Post("/organizacion/{id}/eliminar/", h.Organization.Delete)
		})
	})

	return r
}

package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/http/handler"
	"github.com/planiapp/tareas-api/internal/http/middleware"
	"github.com/planiapp/tareas-api/internal/repository"
	"github.com/planiapp/tareas-api/internal/service"
	"github.com/planiapp/tareas-api/internal/storage"
	"github.com/planiapp/tareas-api/internal/testutil"
	"github.com/planiapp/tareas-api/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAPIKey = "api-key-123"

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "tareas-api", Environment: "development", Port: 8080},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Server:   config.ServerConfig{ReadTimeout: 30, WriteTimeout: 30, RequestTimeout: 30},
		Security: config.SecurityConfig{FrameOptions: "DENY", ContentSecurityPolicy: "default-src 'self'"},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			JWTIssuer:  "tareas-api-test",
			TokenTTL:   60,
			BcryptCost: 4,
			APIKey:     testAPIKey,
		},
		RateLimit: config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1000, LoginPerMinute: 1000},
		Storage:   config.StorageConfig{Mode: "local", MaxUploadSizeMB: 1},
		Staff:     config.StaffConfig{TemporaryPassword: "temp_password_123", PhoneRegion: "VE", PageSize: 10},
		Dashboard: config.DashboardConfig{UrgentLimit: 5, DueSoonLimit: 5, DueSoonDays: 7},
	}
}

type testServer struct {
	db     *gorm.DB
	cfg    *config.Config
	tokens *auth.TokenManager
	h      http.Handler
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zap.NewNop()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	accountRepo := repository.NewAccountRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	geoRepo := repository.NewGeographyRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)

	tokens := auth.NewTokenManager(&cfg.Auth)
	orgService := service.NewOrganizationService(orgRepo, store, log)
	validate := validation.New(cfg.Staff.PhoneRegion)

	handlers := Handlers{
		Home:         handler.NewHomeHandler(cfg.App.Name, orgService, log),
		Health:       handler.NewHealthHandler(db, log),
		Auth:         handler.NewAuthHandler(service.NewAuthService(accountRepo, staffRepo, tokens, db, cfg.Auth.BcryptCost, log), validate, log),
		Dashboard:    handler.NewDashboardHandler(service.NewDashboardService(taskRepo, &cfg.Dashboard, log), log),
		Staff:        handler.NewStaffHandler(service.NewStaffService(staffRepo, accountRepo, deptRepo, taskRepo, auditRepo, db, &cfg.Staff, cfg.Auth.BcryptCost, log), validate, log),
		Department:   handler.NewDepartmentHandler(service.NewDepartmentService(deptRepo, staffRepo, db, log), validate, log),
		Task:         handler.NewTaskHandler(service.NewTaskService(taskRepo, auditRepo, staffRepo, geoRepo, db, log), validate, log),
		Geography:    handler.NewGeographyHandler(service.NewGeographyService(geoRepo, taskRepo, db, log), validate, log),
		Organization: handler.NewOrganizationHandler(orgService, validate, cfg.Storage.MaxUploadBytes(), log),
	}

	rt := NewRouter(cfg, log, auth.NewMiddleware(&cfg.Auth, tokens, log), middleware.NewRateLimiter(&cfg.RateLimit, log), handlers)
	return &testServer{db: db, cfg: cfg, tokens: tokens, h: rt.Setup()}
}

func (s *testServer) tokenFor(t *testing.T, staff domain.Staff) string {
	t.Helper()
	id := staff.ID
	token, _, err := s.tokens.Issue(staff.Account, &id)
	require.NoError(t, err)
	return token
}

// do sends body as JSON. auth is a bearer token, the API key marker "apikey", or empty.
func (s *testServer) do(t *testing.T, method, path, authz string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	switch authz {
	case "":
	case "apikey":
		req.Header.Set("X-API-Key", testAPIKey)
	default:
		req.Header.Set("Authorization", "Bearer "+authz)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthAndHeaders(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = s.do(t, http.MethodGet, "/health/db", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "pool")

	rec = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHome(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var home domain.HomeDTO
	decode(t, rec, &home)
	assert.Equal(t, "tareas-api", home.Application)
	assert.Nil(t, home.Organization)

	rec = s.do(t, http.MethodGet, "/", "apikey", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/", rec.Header().Get("Location"))

	// invalid credentials on the home page are ignored
	rec = s.do(t, http.MethodGet, "/", "junk", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t, testConfig())
	staff := testutil.Staff(t, s.db, "V10", "Luis", "Rivas", domain.RoleStaff)
	token := s.tokenFor(t, staff)

	tests := []struct {
		name   string
		method string
		path   string
		authz  string
		status int
	}{
		{"dashboard anonymous", http.MethodGet, "/dashboard/", "", http.StatusUnauthorized},
		{"dashboard staff", http.MethodGet, "/dashboard/", token, http.StatusOK},
		{"staff list", http.MethodGet, "/personal/", token, http.StatusOK},
		{"staff create denied", http.MethodPost, "/personal/nuevo/", token, http.StatusForbidden},
		{"staff delete denied", http.MethodPost, fmt.Sprintf("/personal/%d/eliminar/", staff.ID), token, http.StatusForbidden},
		{"department create denied", http.MethodPost, "/dependencia/nueva/", token, http.StatusForbidden},
		{"export denied", http.MethodGet, "/tareas/exportar/", token, http.StatusForbidden},
		{"organization delete denied", http.MethodPost, "/organizacion/1/eliminar/", token, http.StatusForbidden},
		{"me", http.MethodGet, "/auth/me", token, http.StatusOK},
		{"task not found", http.MethodGet, "/tareas/999/", token, http.StatusNotFound},
		{"bad id", http.MethodGet, "/tareas/abc/", token, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.authz, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if rec.Code >= 400 {
				var problem domain.APIError
				decode(t, rec, &problem)
				assert.Equal(t, tt.status, problem.Status)
			}
		})
	}
}

func TestStaffProvisioningAndLogin(t *testing.T) {
	s := newTestServer(t, testConfig())

	form := map[string]interface{}{
		"nationalId":        "V20111222",
		"firstName":         "María",
		"lastName":          "Pérez",
		"birthDate":         "1991-04-02",
		"hireDate":          "2021-09-01",
		"phone":             "0414-1234567",
		"username":          "mperez",
		"email":             "mperez@example.com",
		"role":              "coordinator",
		"createDepartment":  true,
		"newDepartmentName": "Coordinación General",
		"newDepartmentType": "coordination",
	}
	rec := s.do(t, http.MethodPost, "/personal/nuevo/", "apikey", form)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.StaffDTO
	decode(t, rec, &created)
	assert.Equal(t, "+584141234567", created.Phone)
	assert.True(t, created.TemporaryPassword)
	assert.Equal(t, "Coordinación General", created.DepartmentName)

	// same national id again
	rec = s.do(t, http.MethodPost, "/personal/nuevo/", "apikey", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem domain.APIError
	decode(t, rec, &problem)
	assert.Contains(t, problem.Errors, "nationalId")

	rec = s.do(t, http.MethodGet, "/personal/?query=perez", "apikey", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Total int64             `json:"total"`
		Data  []domain.StaffDTO `json:"data"`
	}
	decode(t, rec, &page)
	assert.Equal(t, int64(1), page.Total)

	rec = s.do(t, http.MethodGet, "/personal/exportar/", "apikey", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "personal.xlsx")
	assert.NotZero(t, rec.Body.Len())

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "mperez", "password": "temp_password_123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var token domain.TokenResponse
	decode(t, rec, &token)
	assert.True(t, token.TemporaryPassword)

	rec = s.do(t, http.MethodGet, "/auth/me", token.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me domain.MeDTO
	decode(t, rec, &me)
	assert.Equal(t, "mperez", me.Username)
	require.NotNil(t, me.StaffID)
	assert.Equal(t, created.ID, *me.StaffID)

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "mperez", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidationProblem(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodPost, "/dependencia/nueva/", "apikey", map[string]string{"type": "division"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem domain.APIError
	decode(t, rec, &problem)
	assert.Equal(t, domain.ErrorTypeValidation, problem.Type)
	assert.Contains(t, problem.Errors, "name")
	assert.Contains(t, problem.Errors, "type")

	rec = s.do(t, http.MethodPost, "/dependencia/nueva/", "apikey", map[string]string{"name": "x", "unknown": "field"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, testConfig())
	_, district, locality := testutil.Geography(t, s.db)
	sup := testutil.Staff(t, s.db, "V1", "Ana", "Supervisora", domain.RoleCoordinator)
	asg := testutil.Staff(t, s.db, "V2", "Beto", "Asignado", domain.RoleStaff)
	supToken := s.tokenFor(t, sup)

	today := domain.Today()
	rec := s.do(t, http.MethodPost, "/tareas/nueva/", supToken, map[string]interface{}{
		"title":           "Limpieza de drenajes",
		"description":     "Sector norte",
		"category":        "operational",
		"priority":        "urgent",
		"districtId":      district.ID,
		"localityId":      locality.ID,
		"startDate":       today.Format("2006-01-02"),
		"expectedEndDate": today.AddDate(0, 0, 3).Format("2006-01-02"),
		"supervisorId":    sup.ID,
		"assignedStaffId": asg.ID,
		"unitOfMeasure":   "m",
		"quantity":        "40",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task domain.TaskDTO
	decode(t, rec, &task)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	base := fmt.Sprintf("/tareas/%d/", task.ID)

	rec = s.do(t, http.MethodPost, base+"completar/", supToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, base+"iniciar/", supToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &task)
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)

	rec = s.do(t, http.MethodPost, base+"editar/", supToken, map[string]interface{}{"progressPercent": 100})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"completar/", supToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &task)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.ActualEndDate)

	rec = s.do(t, http.MethodPost, base+"rechazar/", supToken, map[string]string{"reason": "tarde"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, base+"bitacora/", supToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []domain.AuditEntryDTO
	decode(t, rec, &history)
	require.Len(t, history, 4)
	assert.Equal(t, domain.AuditActionCompletion, history[0].Action)
	assert.Equal(t, domain.AuditActionCreation, history[3].Action)

	rec = s.do(t, http.MethodGet, "/tareas/?status=completed", supToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Total int64 `json:"total"`
	}
	decode(t, rec, &page)
	assert.Equal(t, int64(1), page.Total)

	rec = s.do(t, http.MethodGet, "/tareas/?status=bogus", supToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/tareas/exportar/", supToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")

	rec = s.do(t, http.MethodGet, "/dashboard/", supToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash domain.DashboardDTO
	decode(t, rec, &dash)
	assert.Equal(t, int64(1), dash.TotalTasks)
	assert.Equal(t, int64(1), dash.CompletedTasks)
}

func TestTaskCreateWithoutStaffProfile(t *testing.T) {
	s := newTestServer(t, testConfig())
	_, district, locality := testutil.Geography(t, s.db)
	sup := testutil.Staff(t, s.db, "V1", "Ana", "Supervisora", domain.RoleCoordinator)

	today := domain.Today().Format("2006-01-02")
	rec := s.do(t, http.MethodPost, "/tareas/nueva/", "apikey", map[string]interface{}{
		"title":           "Poda",
		"description":     "Plaza central",
		"category":        "operational",
		"districtId":      district.ID,
		"localityId":      locality.ID,
		"startDate":       today,
		"expectedEndDate": today,
		"supervisorId":    sup.ID,
		"assignedStaffId": sup.ID,
		"unitOfMeasure":   "u",
		"quantity":        "1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func TestGeographyRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodPost, "/estados/nuevo/", "apikey", map[string]string{"name": "Lara"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var region domain.RegionDTO
	decode(t, rec, &region)

	rec = s.do(t, http.MethodPost, "/municipios/nuevo/", "apikey", map[string]interface{}{"regionId": region.ID, "name": "Iribarren", "code": "1301"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var district domain.DistrictDTO
	decode(t, rec, &district)

	rec = s.do(t, http.MethodPost, "/parroquias/nueva/", "apikey", map[string]interface{}{"districtId": district.ID, "name": "Catedral", "code": "01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var locality domain.LocalityDTO
	decode(t, rec, &locality)
	assert.Equal(t, "1301", locality.DistrictCode)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/municipios/?estado=%d", region.ID), "apikey", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var districts []domain.DistrictDTO
	decode(t, rec, &districts)
	assert.Len(t, districts, 1)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/municipios/%d/parroquias/", district.ID), "apikey", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/estados/%d/eliminar/", region.ID), "apikey", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOrganizationRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodPost, "/organizacion/nueva/", "apikey", map[string]string{"name": "Alcaldía de Maracaibo"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var org domain.OrganizationDTO
	decode(t, rec, &org)

	rec = s.do(t, http.MethodGet, "/organizacion/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &org)
	assert.Equal(t, "Alcaldía de Maracaibo", org.Name)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/organizacion/%d/logo/", org.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	admin := testutil.Staff(t, s.db, "V5", "Eva", "Admin", domain.RoleAdmin)
	rec = s.do(t, http.MethodPost, "/organizacion/nueva/", s.tokenFor(t, admin), map[string]string{"name": "Otra"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1000, LoginPerMinute: 1, WhitelistPaths: []string{"/health"}}
	s := newTestServer(t, cfg)

	creds := map[string]string{"username": "nadie", "password": "whatever"}
	rec := s.do(t, http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

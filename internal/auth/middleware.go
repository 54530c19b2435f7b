package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/logger"
	"go.uber.org/zap"
)

// systemUser is the identity granted to callers presenting the API key.
// It carries no staff record, so it cannot author task audit entries.
var systemUser = UserContext{
	Username: "system",
	Email:    "system@localhost",
	Role:     domain.RoleSuperuser,
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	tokens *TokenManager
	apiKey string
	logger *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.AuthConfig, tokens *TokenManager, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// identify resolves the caller. ok is false when no credentials were sent.
func (m *Middleware) identify(r *http.Request) (user *UserContext, ok bool, err error) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		if !m.validateAPIKey(key) {
			return nil, true, ErrInvalidToken
		}
		u := systemUser
		return &u, true, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, false, nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, true, ErrInvalidToken
	}
	user, err = m.tokens.ValidateToken(parts[1])
	return user, true, err
}

// attach stores the actor on the request and tags the request logger with it
func (m *Middleware) attach(r *http.Request, user *UserContext) *http.Request {
	ctx := WithUserContext(r.Context(), user)
	reqLogger := logger.WithActor(logger.FromContext(ctx, m.logger), user.AccountID, user.Username)
	return r.WithContext(logger.IntoContext(ctx, reqLogger))
}

// Authenticate rejects requests without valid credentials
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, sent, err := m.identify(r)
		if !sent {
			writeProblem(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "missing authorization header")
			return
		}
		if err != nil {
			m.logger.Warn("authentication failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			detail := "invalid credentials"
			if errors.Is(err, ErrExpiredToken) {
				detail = "token has expired"
			}
			writeProblem(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, detail)
			return
		}

		next.ServeHTTP(w, m.attach(r, user))
	})
}

// OptionalAuthenticate attaches the actor when valid credentials are sent
// and otherwise continues anonymously
func (m *Middleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, sent, err := m.identify(r)
		if sent && err == nil {
			r = m.attach(r, user)
		} else if sent {
			m.logger.Debug("optional auth: invalid credentials, continuing unauthenticated",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission middleware ensures user has specific permission
func (m *Middleware) RequirePermission(permission Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := FromContext(r.Context())
			if !ok {
				writeProblem(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "authentication required")
				return
			}
			if !user.HasPermission(permission) {
				m.logger.Info("permission denied",
					zap.String("username", user.Username),
					zap.String("permission", string(permission)),
					zap.String("path", r.URL.Path),
				)
				writeProblem(w, http.StatusForbidden, domain.ErrorTypeForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperuser middleware ensures the actor is a superuser
func (m *Middleware) RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := FromContext(r.Context())
		if !ok {
			writeProblem(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "authentication required")
			return
		}
		if !user.IsSuperuser() {
			writeProblem(w, http.StatusForbidden, domain.ErrorTypeForbidden, "superuser access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

func writeProblem(w http.ResponseWriter, status int, errType, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&domain.APIError{
		Type:   errType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

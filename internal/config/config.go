package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/planiapp/tareas-api/internal/secrets"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Staff     StaffConfig
	Dashboard DashboardConfig
	Catalog   CatalogConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

// DatabaseConfig selects the relational store. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	ContentSecurityPolicy string
	FrameOptions          string
	ReferrerPolicy        string
}

// AuthConfig controls token issuance and local password handling
type AuthConfig struct {
	JWTSecret  string
	JWTIssuer  string
	TokenTTL   int // minutes
	BcryptCost int
	APIKey     string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	LoginPerMinute    int
	WhitelistPaths    []string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source is "environment", "vault" or "auto" (vault outside development)
	Source       string
	KeyVaultName string
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

// StaffConfig holds defaults used when provisioning staff accounts
type StaffConfig struct {
	TemporaryPassword string
	PhoneRegion       string
	PageSize          int
}

// DashboardConfig sizes the dashboard task lists
type DashboardConfig struct {
	UrgentLimit  int
	DueSoonLimit int
	DueSoonDays  int
}

// CatalogConfig points at the optional read-only SQL Server geography catalog
type CatalogConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	MaxOpenConns    int
	QueryTimeout    int
	SyncSchedule    string
	SyncTimeout     int
	RetryAttempts   int
	RetryBackoffSec int
}

// BootstrapConfig seeds the first superuser when no superuser exists
type BootstrapConfig struct {
	Username string
	Password string
	Email    string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

func (a *AuthConfig) TokenTTLDuration() time.Duration {
	return time.Duration(a.TokenTTL) * time.Minute
}

func (c *CatalogConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(c.QueryTimeout) * time.Second
}

func (c *CatalogConfig) SyncTimeoutDuration() time.Duration {
	return time.Duration(c.SyncTimeout) * time.Second
}

// MaxUploadBytes returns the upload limit in bytes
func (s *StorageConfig) MaxUploadBytes() int64 {
	return s.MaxUploadSizeMB * 1024 * 1024
}

// Load loads configuration from file and environment variables.
// Secrets held in Key Vault are resolved by LoadWithSecrets.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.APIKey == "" {
		cfg.Auth.APIKey = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Staff.PageSize <= 0 {
		return fmt.Errorf("staff.pageSize must be positive")
	}
	if c.Dashboard.UrgentLimit <= 0 || c.Dashboard.DueSoonLimit <= 0 || c.Dashboard.DueSoonDays < 0 {
		return fmt.Errorf("invalid dashboard configuration")
	}
	return nil
}

// LoadWithSecrets loads configuration and overlays secrets from the configured source.
// Environment variables always win over vault values.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	resolver, err := secrets.NewResolver(secrets.ResolverConfig{
		Source:      secrets.Source(cfg.Secrets.Source),
		VaultName:   cfg.Secrets.KeyVaultName,
		Environment: cfg.App.Environment,
		CacheTTL:    time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets resolver: %w", err)
	}

	if !resolver.UsesVault() {
		logger.Info("Using environment for secrets", zap.String("environment", cfg.App.Environment))
		return cfg, nil
	}

	overlay := []struct {
		vaultName string
		envName   string
		target    *string
	}{
		{"database-password", "DATABASE_PASSWORD", &cfg.Database.Password},
		{"jwt-secret", "AUTH_JWTSECRET", &cfg.Auth.JWTSecret},
		{"admin-api-key", "ADMIN_API_KEY", &cfg.Auth.APIKey},
		{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", &cfg.Storage.CloudConnectionString},
		{"catalog-password", "CATALOG_PASSWORD", &cfg.Catalog.Password},
	}
	for _, o := range overlay {
		value, err := resolver.Resolve(ctx, o.vaultName, o.envName)
		if err != nil {
			logger.Warn("Secret not resolved, keeping configured value",
				zap.String("secret_name", o.vaultName),
				zap.Error(err),
			)
			continue
		}
		*o.target = value
	}

	logger.Info("Secrets loaded from vault", zap.String("key_vault_name", cfg.Secrets.KeyVaultName))
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Planiapp Tareas API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "tareas")
	v.SetDefault("database.user", "tareas_user")
	v.SetDefault("database.password", "tareas_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.sqlitePath", "tareas.db")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID", "Content-Disposition"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")

	v.SetDefault("auth.jwtSecret", "change-me-in-production")
	v.SetDefault("auth.jwtIssuer", "tareas-api")
	v.SetDefault("auth.tokenTTL", 480)
	v.SetDefault("auth.bcryptCost", 12)

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.loginPerMinute", 10)
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "organization-logos")
	v.SetDefault("storage.maxUploadSizeMB", 5)

	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("staff.temporaryPassword", "temp_password_123")
	v.SetDefault("staff.phoneRegion", "VE")
	v.SetDefault("staff.pageSize", 10)

	v.SetDefault("dashboard.urgentLimit", 5)
	v.SetDefault("dashboard.dueSoonLimit", 5)
	v.SetDefault("dashboard.dueSoonDays", 7)

	v.SetDefault("catalog.enabled", false)
	v.SetDefault("catalog.port", 1433)
	v.SetDefault("catalog.maxOpenConns", 5)
	v.SetDefault("catalog.queryTimeout", 30)
	v.SetDefault("catalog.syncSchedule", "0 0 3 * * *")
	v.SetDefault("catalog.syncTimeout", 300)
	v.SetDefault("catalog.retryAttempts", 3)
	v.SetDefault("catalog.retryBackoffSec", 2)

	v.SetDefault("bootstrap.username", "")
	v.SetDefault("bootstrap.password", "")
	v.SetDefault("bootstrap.email", "")
}

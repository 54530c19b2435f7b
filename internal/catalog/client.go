// Package catalog reads the official geography catalog from a read-only
// SQL Server database.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"github.com/planiapp/tareas-api/internal/config"
	"go.uber.org/zap"
)

const (
	defaultMaxBackoff         = 10 * time.Second
	defaultHealthCheckTimeout = 5 * time.Second
)

// geographyQuery reads one row per locality with its district and region
const geographyQuery = `
SELECT region_name, district_code, district_name, locality_code, locality_name
FROM dbo.geography_catalog
ORDER BY region_name, district_code, locality_code`

// Entry is one locality of the catalog together with its parents
type Entry struct {
	RegionName   string
	DistrictCode string
	DistrictName string
	LocalityCode string
	LocalityName string
}

// Client provides read-only access to the catalog database
type Client struct {
	db           *sql.DB
	logger       *zap.Logger
	queryTimeout time.Duration
}

// HealthStatus is the result of a catalog health check
type HealthStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
	Open      int    `json:"open_connections"`
	InUse     int    `json:"in_use"`
	Idle      int    `json:"idle"`
}

// NewClient connects to the catalog. It returns nil without error when the
// catalog is disabled or not fully configured.
func NewClient(cfg *config.CatalogConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("geography catalog disabled")
		return nil, nil
	}
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("geography catalog enabled but not configured, skipping",
			zap.Bool("host_present", cfg.Host != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""),
		)
		return nil, nil
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(cfg.RetryBackoffSec) * time.Second

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var db *sql.DB
		db, err = open(cfg)
		if err == nil {
			logger.Info("geography catalog connected", zap.Int("attempts_taken", attempt))
			return &Client{
				db:           db,
				logger:       logger,
				queryTimeout: cfg.QueryTimeoutDuration(),
			}, nil
		}

		logger.Warn("geography catalog connection failed", zap.Error(err), zap.Int("attempt", attempt))
		if attempt < attempts {
			time.Sleep(backoff)
			backoff = min(backoff*2, defaultMaxBackoff)
		}
	}
	return nil, fmt.Errorf("failed to connect to geography catalog after %d attempts: %w", attempts, err)
}

func open(cfg *config.CatalogConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", ConnectionString(cfg))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ConnectionString builds a sqlserver:// URL from the catalog configuration
func ConnectionString(cfg *config.CatalogConfig) string {
	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("TrustServerCertificate", "false")
	query.Add("connection timeout", "30")
	query.Add("ApplicationIntent", "ReadOnly")
	if cfg.Database != "" {
		query.Add("database", cfg.Database)
	}

	port := cfg.Port
	if port == 0 {
		port = 1433
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close geography catalog connection: %w", err)
	}
	c.logger.Info("geography catalog connection closed")
	return nil
}

// IsEnabled reports whether the client is connected
func (c *Client) IsEnabled() bool {
	return c != nil && c.db != nil
}

func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if !c.IsEnabled() {
		return &HealthStatus{Status: "disabled"}
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	start := time.Now()
	err := c.db.PingContext(ctx)
	stats := c.db.Stats()
	status := &HealthStatus{
		Status:    "healthy",
		LatencyMs: time.Since(start).Milliseconds(),
		Open:      stats.OpenConnections,
		InUse:     stats.InUse,
		Idle:      stats.Idle,
	}
	if err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	}
	return status
}

// FetchGeography reads the whole catalog
func (c *Client) FetchGeography(ctx context.Context) ([]Entry, error) {
	if !c.IsEnabled() {
		return nil, fmt.Errorf("geography catalog client not initialized")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := c.db.QueryContext(ctx, geographyQuery)
	if err != nil {
		return nil, fmt.Errorf("catalog query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RegionName, &e.DistrictCode, &e.DistrictName, &e.LocalityCode, &e.LocalityName); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		entries = append(entries, e.trimmed())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog rows: %w", err)
	}

	c.logger.Debug("geography catalog read",
		zap.Int("rows", len(entries)),
		zap.Duration("duration", time.Since(start)),
	)
	return entries, nil
}

func (e Entry) trimmed() Entry {
	return Entry{
		RegionName:   strings.TrimSpace(e.RegionName),
		DistrictCode: strings.TrimSpace(e.DistrictCode),
		DistrictName: strings.TrimSpace(e.DistrictName),
		LocalityCode: strings.TrimSpace(e.LocalityCode),
		LocalityName: strings.TrimSpace(e.LocalityName),
	}
}

// Valid reports whether every field needed to upsert the entry is present
func (e Entry) Valid() bool {
	return e.RegionName != "" && e.DistrictCode != "" && e.DistrictName != "" &&
		e.LocalityCode != "" && e.LocalityName != ""
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "temp_password_123", cfg.Staff.TemporaryPassword)
	assert.Equal(t, 10, cfg.Staff.PageSize)
	assert.Equal(t, "VE", cfg.Staff.PhoneRegion)
	assert.Equal(t, 5, cfg.Dashboard.UrgentLimit)
	assert.Equal(t, 5, cfg.Dashboard.DueSoonLimit)
	assert.Equal(t, 7, cfg.Dashboard.DueSoonDays)
	assert.False(t, cfg.Catalog.Enabled)
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTLDuration())
	assert.Equal(t, int64(5*1024*1024), cfg.Storage.MaxUploadBytes())
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("STAFF_PAGESIZE", "25")
	t.Setenv("ADMIN_API_KEY", "key-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Staff.PageSize)
	assert.Equal(t, "key-123", cfg.Auth.APIKey)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database:  DatabaseConfig{Driver: "postgres"},
			Staff:     StaffConfig{PageSize: 10},
			Dashboard: DashboardConfig{UrgentLimit: 5, DueSoonLimit: 5, DueSoonDays: 7},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "sqlite driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "zero page size", mutate: func(c *Config) { c.Staff.PageSize = 0 }, wantErr: true},
		{name: "zero urgent limit", mutate: func(c *Config) { c.Dashboard.UrgentLimit = 0 }, wantErr: true},
		{name: "zero due soon limit", mutate: func(c *Config) { c.Dashboard.DueSoonLimit = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "tareas", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tareas sslmode=disable", d.ConnectionString())
}

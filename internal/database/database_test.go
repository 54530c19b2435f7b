package database

import (
	"path/filepath"
	"testing"

	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "tareas.db"),
	}

	db, err := NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"regions", "districts", "localities", "organizations", "accounts", "departments", "staff", "tasks", "task_participants", "audit_entries"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	require.NoError(t, HealthCheck(db))

	stats, err := HealthCheckWithStats(db)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)

	// unique district code
	region := domain.Region{Name: "Zulia"}
	require.NoError(t, db.Create(&region).Error)
	require.NoError(t, db.Create(&domain.District{RegionID: region.ID, Name: "Maracaibo", Code: "2113"}).Error)
	assert.Error(t, db.Create(&domain.District{RegionID: region.ID, Name: "Duplicate", Code: "2113"}).Error)
}

func TestHealthCheck_ClosedDatabase(t *testing.T) {
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	require.NoError(t, Close(db))

	assert.Error(t, HealthCheck(db))
}

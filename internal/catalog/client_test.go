package catalog

import (
	"context"
	"net/url"
	"testing"

	"github.com/planiapp/tareas-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClient_DisabledOrIncomplete(t *testing.T) {
	logger := zap.NewNop()

	client, err := NewClient(&config.CatalogConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.Nil(t, client)

	client, err = NewClient(&config.CatalogConfig{Enabled: true, Host: "db"}, logger)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNilClient(t *testing.T) {
	var client *Client
	assert.False(t, client.IsEnabled())
	assert.NoError(t, client.Close())
	assert.Equal(t, "disabled", client.HealthCheck(context.Background()).Status)

	_, err := client.FetchGeography(context.Background())
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	cfg := &config.CatalogConfig{Host: "catalog.local", User: "reader", Password: "p@ss", Database: "geo"}

	u, err := url.Parse(ConnectionString(cfg))
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "catalog.local:1433", u.Host)
	assert.Equal(t, "reader", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss", password)
	assert.Equal(t, "geo", u.Query().Get("database"))
	assert.Equal(t, "ReadOnly", u.Query().Get("ApplicationIntent"))
}

func TestEntry_Valid(t *testing.T) {
	e := Entry{RegionName: " Zulia ", DistrictCode: "2113", DistrictName: "Maracaibo", LocalityCode: "01", LocalityName: "Chiquinquirá"}.trimmed()
	assert.Equal(t, "Zulia", e.RegionName)
	assert.True(t, e.Valid())

	e.LocalityCode = ""
	assert.False(t, e.Valid())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_EmbeddedFallback(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.Timeout)
	assert.Equal(t, int64(64<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 10, cfg.Repositories.Postgres.MAXCONWAITINGTIME)
	assert.Equal(t, "localhost", cfg.Repositories.Postgres.Host)
	assert.Equal(t, "local", cfg.Assets.Driver)
	assert.Equal(t, "/static/images", cfg.Assets.PublicPath)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:3000")
}

func TestInitConfig_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CATALOG_REPOSITORIES_POSTGRES_HOST", "db.internal")
	t.Setenv("CATALOG_ASSETS_DRIVER", "s3")
	t.Setenv("CATALOG_SERVER_MAXBODYBYTES", "1024")

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(1024), cfg.Server.MaxBodyBytes)

	assert.Equal(t, "db.internal", cfg.Repositories.Postgres.Host)
	assert.Equal(t, "s3", cfg.Assets.Driver)
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, "8000", cfg.Server.HTTPPort)
	assert.Equal(t, int64(64<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "static/images", cfg.Assets.Dir)
	assert.Equal(t, "sports-card-catalog", cfg.Observability.ServiceName)
}

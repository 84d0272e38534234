package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "simulacion", cfg.ScaleMode)
	assert.Equal(t, 500, cfg.ScaleTickMS)
	assert.False(t, cfg.SaleCommitAtomic)
	assert.Equal(t, 10, cfg.CatalogCacheTTLMin)
	assert.Equal(t, 2, cfg.WorkerPoolSize)
}

func TestLoad_Entorno(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("SCALE_MODE", "manual")
	t.Setenv("SALE_COMMIT_ATOMIC", "true")
	t.Setenv("RATE_LIMIT_PER_MIN", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "manual", cfg.ScaleMode)
	assert.True(t, cfg.SaleCommitAtomic)
	assert.Equal(t, 60, cfg.RateLimitPerMin)
}

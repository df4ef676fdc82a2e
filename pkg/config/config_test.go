package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, DemoModeAuto, cfg.DemoMode)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, time.Hour, cfg.Reports.SignedURLTTL)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DEMO_MODE", "off")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SCHEMA_FILE", "/etc/gwd/schema.yaml")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DemoModeOff, cfg.DemoMode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "/etc/gwd/schema.yaml", cfg.Schema.File)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
}

func TestNormaliseDemoMode(t *testing.T) {
	assert.Equal(t, DemoModeOn, normaliseDemoMode("TRUE"))
	assert.Equal(t, DemoModeOff, normaliseDemoMode("0"))
	assert.Equal(t, DemoModeAuto, normaliseDemoMode(""))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.AutosaveInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTOSAVE_INTERVAL", "30s")
	t.Setenv("ALLOWED_ORIGINS", "https://noc.example.com, http://localhost:5173,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, []string{"https://noc.example.com", "http://localhost:5173"}, cfg.Origins())
	assert.Equal(t, []string{"noc.example.com", "localhost:5173"}, cfg.OriginHosts())
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load()
	assert.Error(t, err)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config.yaml present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "http://localhost:8070", cfg.Grobid.Server)
	assert.Equal(t, 60*time.Second, cfg.Grobid.Timeout())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.InDelta(t, 0.30, cfg.Extract.StartRatio, 1e-9)
	assert.InDelta(t, 0.76, cfg.Extract.EndRatio, 1e-9)
	assert.True(t, cfg.Extract.AbstractBias)
	assert.Equal(t, 4, cfg.Search.Concurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SEMICODE_LLM_PROVIDER", "anthropic")
	t.Setenv("SEMICODE_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "chatty", Format: "json"})
	require.Error(t, err)
}

package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("RECONCILE_TOLERANCE", "")
	t.Setenv("LAYOUT_ROW_TOLERANCE", "")
	t.Setenv("OCR_MAX_PAGES", "")
	t.Setenv("DOCUMENT_MAX_PAGES", "")

	cfg := LoadConfig()

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.InDelta(t, 0.05, cfg.Pipeline.Tolerance, 1e-9)
	assert.InDelta(t, 3.0, cfg.Pipeline.RowTolerance, 1e-9)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, time.Second, cfg.LLM.BaseDelay)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, "fra+eng", cfg.OCR.Lang)
	assert.Equal(t, 20, cfg.OCR.MaxPages)
	assert.Equal(t, 50, cfg.Pipeline.MaxPages)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("RECONCILE_TOLERANCE", "0.1")
	t.Setenv("LAYOUT_ROW_TOLERANCE", "4.5")
	t.Setenv("LLM_BASE_DELAY", "250ms")
	t.Setenv("LAYOUT_FALLBACK_ENABLED", "false")
	t.Setenv("LAYOUT_HEADER_KEYWORDS", "designation, finition ,longueur")
	t.Setenv("AUTH_TOKENS", "alice:tok-a, tok-b")

	cfg := LoadConfig()

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.InDelta(t, 0.1, cfg.Pipeline.Tolerance, 1e-9)
	assert.InDelta(t, 4.5, cfg.Pipeline.RowTolerance, 1e-9)
	assert.Equal(t, 250*time.Millisecond, cfg.LLM.BaseDelay)
	assert.False(t, cfg.Pipeline.FallbackEnabled)
	assert.Equal(t, []string{"designation", "finition", "longueur"}, cfg.Pipeline.HeaderKeywords)
	assert.Equal(t, map[string]string{"tok-a": "alice", "tok-b": "api"}, cfg.Server.AuthTokens)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "sqlite needs no dsn", mutate: func(c *Config) { c.Database.Driver = DriverSQLite }},
		{name: "postgres needs dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "claude" }, wantErr: true},
		{name: "gemini without key", mutate: func(c *Config) { c.LLM.Provider = ProviderGemini }, wantErr: true},
		{name: "tolerance above one", mutate: func(c *Config) { c.Pipeline.Tolerance = 1.5 }, wantErr: true},
		{name: "zero attempts", mutate: func(c *Config) { c.LLM.MaxAttempts = 0 }, wantErr: true},
		{name: "ocr dpi too low", mutate: func(c *Config) { c.OCR.Enabled, c.OCR.DPI = true, 10 }, wantErr: true},
		{name: "ocr dpi ignored when disabled", mutate: func(c *Config) { c.OCR.DPI = 10 }},
		{name: "negative page limit", mutate: func(c *Config) { c.Pipeline.MaxPages = -1 }, wantErr: true},
		{name: "ocr page limit too high", mutate: func(c *Config) { c.OCR.Enabled, c.OCR.DPI, c.OCR.MaxPages = true, 300, 5000 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://localhost/db"},
				LLM:      LLMConfig{Provider: ProviderAuto, MaxAttempts: 3},
				Pipeline: PipelineConfig{Tolerance: 0.05, RowTolerance: 3, MinConfidence: 0.6},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestValidateServer_RequiresTokensUnlessDisabled(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: DriverSQLite},
		LLM:      LLMConfig{Provider: ProviderNone, MaxAttempts: 3},
		Pipeline: PipelineConfig{Tolerance: 0.05, RowTolerance: 3, MinConfidence: 0.6},
		Server:   ServerConfig{HTTPAddr: ":8080", MaxUploadBytes: 32 << 20},
	}
	require.Error(t, cfg.ValidateServer())

	cfg.Server.AuthDisabled = true
	require.NoError(t, cfg.ValidateServer())

	cfg.Server.AuthDisabled = false
	cfg.Server.AuthTokens = map[string]string{"secret": "ops"}
	require.NoError(t, cfg.ValidateServer())
}

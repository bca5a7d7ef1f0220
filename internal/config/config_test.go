package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetsAreValid(t *testing.T) {
	for _, c := range []*Config{DefaultConfig(), StressTestConfig(), LowResourceConfig()} {
		assert.NoError(t, c.Validate(), c.Profile)
	}
	assert.Equal(t, 300, DefaultConfig().TickSeconds)
}

func TestLoadConfig_OverlaysProfile(t *testing.T) {
	content := `{
		"profile": "low",
		"listen_addr": ":9999",
		"tick_seconds": 5
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.TickSeconds)
	assert.Equal(t, 2, cfg.SettlementWorkers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig("/nonexistent/path/config.json")
	assert.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{ invalid json }`), 0644))
	_, err = LoadConfig(path)
	assert.Contains(t, err.Error(), "failed to parse config JSON")

	path = filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"profile":"turbo"}`), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BYTELIFE_DB_DRIVER":          "postgres",
		"BYTELIFE_DATABASE_URL":       "postgres://localhost/bytelife",
		"BYTELIFE_SETTLEMENT_WORKERS": "7",
		"BYTELIFE_LOG_JSON":           "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 7, cfg.SettlementWorkers)
	assert.True(t, cfg.LogJSON)
	assert.NoError(t, cfg.Validate())

	env["BYTELIFE_TICK_SECONDS"] = "soon"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBDriver = "postgres"
	assert.Error(t, cfg.Validate(), "postgres needs a database url")

	cfg = DefaultConfig()
	cfg.TickSeconds = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.DBMaxIdleConns = cfg.DBMaxOpenConns + 1
	assert.Error(t, cfg.Validate())
}

func TestAnalyzeRecommendsWorkers(t *testing.T) {
	cfg := LowResourceConfig()
	rec := Analyze(map[string]interface{}{
		"tick":      map[string]interface{}{"max_latency_ms": 250.0},
		"websocket": map[string]interface{}{"errors": int64(3)},
	})

	require.True(t, rec.IncreaseWorkers)
	ApplyRecommendations(cfg, rec)

	assert.Equal(t, 4, cfg.SettlementWorkers)
	assert.Equal(t, 16, cfg.ClientSendBuffer)
	assert.Len(t, rec.Notes, 2)
}

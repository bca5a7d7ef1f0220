package main

import (
	"context"
	"testing"

	"github.com/MRamiBalles/ByteLife/internal/config"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateSettlesEveryPlayer(t *testing.T) {
	cfg := config.LowResourceConfig()
	cfg.LogLevel = "error"

	res, err := simulate(context.Background(), cfg, 5, 12, 2500, metrics.New())
	require.NoError(t, err)

	assert.Equal(t, 15, res.Setups)
	assert.Zero(t, res.Rejections)
	assert.Equal(t, 60, res.Reports)
	assert.Zero(t, res.Faults)
	assert.Positive(t, res.JobPayout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BYTELIFE_DB_DRIVER", "memory")
	t.Setenv("BYTELIFE_LISTEN_ADDR", ":9999")
	profileName = "low"
	defer func() { profileName = "" }()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, config.ProfileLowResource, cfg.Profile)
}

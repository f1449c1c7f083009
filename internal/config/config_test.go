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

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 30*time.Minute, cfg.DrawInterval)
	assert.Equal(t, time.Second, cfg.CountdownTick)
	assert.Equal(t, 1000, cfg.StartingBalance)
	assert.Equal(t, 50, cfg.MaxTickets)
	assert.Equal(t, 100, cfg.HistorySize)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOTTO_LISTEN_ADDR", ":9999")
	t.Setenv("LOTTO_DRAW_INTERVAL", "90s")
	t.Setenv("LOTTO_STARTING_BALANCE", "2500")
	t.Setenv("LOTTO_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 90*time.Second, cfg.DrawInterval)
	assert.Equal(t, 2500, cfg.StartingBalance)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "dev-secret")
	t.Setenv("APP_ENV", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "https://brasilapi.com.br/api/cnpj/v1", cfg.CNPJAPIURL)
	require.Equal(t, 5*time.Second, cfg.CNPJTimeout)
	require.Equal(t, "*/30 * * * *", cfg.NotifyScanCron)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestProductionNeedsLongSecret(t *testing.T) {
	cfg := &Config{AppEnv: "production", SessionSecret: "short"}
	require.Error(t, cfg.validate())

	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	require.NoError(t, cfg.validate())
}

func TestLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "test", LogFormat: "json", LogLevel: "warn"}, &buf)

	logger.Info("dropped")
	require.Zero(t, buf.Len())

	logger.Warn("kept", slog.Int("order_id", 7))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "kept", entry["msg"])
	require.Equal(t, "test", entry["env"])
	require.EqualValues(t, 7, entry["order_id"])
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("app:\n  name: test\n"))
	require.NoError(t, err)

	require.Equal(t, "test", cfg.App.Name)
	require.Equal(t, 10, cfg.QuoteProvider.BatchSize)
	require.Equal(t, 3, cfg.QuoteProvider.MaxConcurrency)
	require.Equal(t, 12*time.Second, cfg.QuoteProvider.Timeout)
	require.Equal(t, 5, cfg.Alerting.DefaultThreshold)
	require.Equal(t, 5, cfg.Alerting.DailyQuota)
	require.Equal(t, "onesignal", cfg.Push.Provider)
	require.Equal(t, 10*time.Second, cfg.Push.Timeout)
	require.Equal(t, "@every 5m", cfg.Alerting.Schedule)
}

func TestParseKeepsExplicitZeroThreshold(t *testing.T) {
	cfg, err := Parse([]byte("alerting:\n  default_threshold: 0\n"))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Alerting.DefaultThreshold)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsThresholdOutOfRange(t *testing.T) {
	for _, v := range []string{"-1", "101"} {
		cfg, err := Parse([]byte("alerting:\n  default_threshold: " + v + "\n"))
		require.NoError(t, err)
		require.Error(t, cfg.Validate(), v)
	}
}

func TestValidateRejectsDailyQuotaAboveCap(t *testing.T) {
	cfg, err := Parse([]byte("alerting:\n  daily_quota: 8\n"))
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.Alerting.DailyQuota = 3
	require.NoError(t, cfg.Validate())
}

func TestParseDurations(t *testing.T) {
	cfg, err := Parse([]byte("quote_provider:\n  timeout: 3s\n  batch_size: 25\npush:\n  timeout: 1500ms\n"))
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.QuoteProvider.Timeout)
	require.Equal(t, 25, cfg.QuoteProvider.BatchSize)
	require.Equal(t, 1500*time.Millisecond, cfg.Push.Timeout)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("app: [unterminated"))
	require.Error(t, err)
}

func TestValidateCredentials(t *testing.T) {
	cfg := Default()
	err := cfg.ValidateCredentials()
	require.True(t, errors.Is(err, ErrMissingCredentials))

	cfg.QuoteProvider.APIKey = "quote-key"
	require.ErrorIs(t, cfg.ValidateCredentials(), ErrMissingCredentials)

	cfg.Push.AppID = "app"
	cfg.Push.APIKey = "push-key"
	require.NoError(t, cfg.ValidateCredentials())

	cfg.Push.Provider = "fcm"
	require.ErrorIs(t, cfg.ValidateCredentials(), ErrMissingCredentials)
	cfg.Push.CredentialsFile = "secrets/fcm.json"
	require.NoError(t, cfg.ValidateCredentials())
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Push.Provider = "carrier-pigeon"
	require.Error(t, cfg.Validate())
}

func TestLoadConfigOverridesFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quote_provider:\n  api_key: from-file\ndatabase:\n  postgres:\n    port: 5433\n"), 0o600))

	t.Setenv("QUOTE_API_KEY", "from-env")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.QuoteProvider.APIKey)
	require.Equal(t, 6543, cfg.Database.Postgres.Port)
	require.True(t, cfg.NATS.Enabled)
	require.Contains(t, cfg.DSN(), "port=6543")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_ENV", "prod")
	require.Equal(t, "configs/prod/app.yaml", GetDefaultConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/stockpulse.yaml")
	require.Equal(t, "/etc/stockpulse.yaml", GetDefaultConfigPath())
}

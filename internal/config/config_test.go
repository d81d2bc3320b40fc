package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atinyakov/go-qr-expiry/internal/config"
)

// unset clears key for the test and restores it afterwards.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var allKeys = []string{
	"SERVER_ADDRESS", "BASE_URL", "DATABASE_DSN", "SQLITE_PATH", "FILE_STORAGE_PATH",
	"REDIS_ADDR", "REDIS_TTL", "ARTIFACT_DIR", "S3_BUCKET", "S3_ENDPOINT", "S3_REGION",
	"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "TIME_ZONE", "INPUT_TIME_ZONE",
	"STORE_TIMEOUT", "TRUSTED_SUBNET", "GRPC_PORT", "LOG_LEVEL", "ENABLE_PPROF",
	"ENABLE_HTTPS", "CONFIG",
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		unset(t, allKeys...)

		opts, err := config.Load(nil)
		require.NoError(t, err)
		require.Equal(t, "localhost:8080", opts.Port)
		require.Equal(t, "http://localhost:8080", opts.ResultHostname)
		require.Equal(t, "", opts.FilePath)
		require.Equal(t, "generated_codes", opts.ArtifactDir)
		require.Equal(t, "Asia/Kolkata", opts.TimeZone)
		require.Equal(t, 3*time.Second, opts.StoreTimeout)
		require.Equal(t, 10*time.Minute, opts.RedisTTL)
		require.Equal(t, 0, opts.GRPCPort)
		require.False(t, opts.EnableHTTPS)
		require.False(t, opts.EnablePprof)
	})

	t.Run("flags", func(t *testing.T) {
		unset(t, allKeys...)

		opts, err := config.Load([]string{
			"-a", ":9090", "-b", "https://qr.example", "-q", "/var/lib/codes.db",
			"-z", "UTC", "-t", "10.0.0.0/8", "-g", "3200", "-s",
		})
		require.NoError(t, err)
		require.Equal(t, ":9090", opts.Port)
		require.Equal(t, "https://qr.example", opts.ResultHostname)
		require.Equal(t, "/var/lib/codes.db", opts.SQLitePath)
		require.Equal(t, "UTC", opts.TimeZone)
		require.Equal(t, "10.0.0.0/8", opts.TrustedSubnet)
		require.Equal(t, 3200, opts.GRPCPort)
		require.True(t, opts.EnableHTTPS)
	})

	t.Run("env overrides flags", func(t *testing.T) {
		unset(t, allKeys...)
		t.Setenv("SERVER_ADDRESS", "127.0.0.1:9999")
		t.Setenv("BASE_URL", "http://example.com")
		t.Setenv("FILE_STORAGE_PATH", "/tmp/data")
		t.Setenv("ENABLE_HTTPS", "true")
		t.Setenv("TRUSTED_SUBNET", "192.168.0.0/24")
		t.Setenv("STORE_TIMEOUT", "750ms")
		t.Setenv("S3_BUCKET", "codes")
		t.Setenv("S3_REGION", "eu-central-1")

		opts, err := config.Load([]string{"-a", ":1"})
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9999", opts.Port)
		require.Equal(t, "http://example.com", opts.ResultHostname)
		require.Equal(t, "/tmp/data", opts.FilePath)
		require.True(t, opts.EnableHTTPS)
		require.Equal(t, "192.168.0.0/24", opts.TrustedSubnet)
		require.Equal(t, 750*time.Millisecond, opts.StoreTimeout)
		require.Equal(t, "codes", opts.S3.Bucket)
		require.Equal(t, "eu-central-1", opts.S3.Region)
	})

	t.Run("bad env value", func(t *testing.T) {
		unset(t, allKeys...)
		t.Setenv("GRPC_PORT", "not-a-port")

		_, err := config.Load(nil)
		require.Error(t, err)
	})

	t.Run("config file under flags", func(t *testing.T) {
		unset(t, allKeys...)

		cfgPath := filepath.Join(t.TempDir(), "cfg.json")
		content, err := json.Marshal(map[string]any{
			"server_address": "10.0.0.1:8081",
			"base_url":       "http://testhost",
			"database_dsn":   "postgres://test",
			"enable_pprof":   true,
			"trusted_subnet": "10.10.0.0/16",
		})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(cfgPath, content, 0o644))

		opts, err := config.Load([]string{"-c", cfgPath, "-b", "http://flag"})
		require.NoError(t, err)
		require.Equal(t, "10.0.0.1:8081", opts.Port)
		require.Equal(t, "http://flag", opts.ResultHostname)
		require.Equal(t, "postgres://test", opts.DatabaseDSN)
		require.True(t, opts.EnablePprof)
		require.Equal(t, "10.10.0.0/16", opts.TrustedSubnet)
		require.Equal(t, cfgPath, opts.Config)
	})

	t.Run("config file from env", func(t *testing.T) {
		unset(t, allKeys...)

		cfgPath := filepath.Join(t.TempDir(), "cfg.json")
		require.NoError(t, os.WriteFile(cfgPath, []byte(`{"time_zone":"Europe/Berlin"}`), 0o644))
		t.Setenv("CONFIG", cfgPath)

		opts, err := config.Load(nil)
		require.NoError(t, err)
		require.Equal(t, "Europe/Berlin", opts.TimeZone)
	})

	t.Run("missing config file", func(t *testing.T) {
		unset(t, allKeys...)

		_, err := config.Load([]string{"-config=" + filepath.Join(t.TempDir(), "nope.json")})
		require.Error(t, err)
	})

	t.Run("dotenv file", func(t *testing.T) {
		unset(t, allKeys...)

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_ADDR=localhost:6379\n"), 0o644))
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() { _ = os.Chdir(wd) })

		opts, err := config.Load(nil)
		require.NoError(t, err)
		require.Equal(t, "localhost:6379", opts.RedisAddr)
	})
}

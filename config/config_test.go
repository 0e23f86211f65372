package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, "taskcycle.db", cfg.Database.Path)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenDuration())
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenDuration())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 64, cfg.Cycle.MaxCatchUpSteps)
}

func TestLoadFile_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 8080
jwt:
  issuer: test-issuer
  access_token_ttl: 1m
redis:
  addr: localhost:6379
  ttl: 30s
cycle:
  max_catch_up_steps: 8
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "test-issuer", cfg.JWT.Issuer)
	assert.Equal(t, time.Minute, cfg.JWT.AccessTokenDuration())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Redis.TTLDuration())
	assert.Equal(t, 8, cfg.Cycle.MaxCatchUpSteps)
	// untouched keys keep defaults
	assert.Equal(t, "taskcycle.db", cfg.Database.Path)
	assert.Equal(t, "task:", cfg.Redis.Prefix)
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "http:\n  port: 8080\n")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("JWT_SECRET_KEY", "from-env")
	t.Setenv("DB_DEBUG", "true")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "from-env", cfg.JWT.SecretKey)
	assert.True(t, cfg.Database.Debug)
}

func TestLoad_UsesEnvPath(t *testing.T) {
	path := writeConfig(t, "activity:\n  capacity: 7\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Activity.Capacity)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		msg  string
	}{
		{name: "unknown key", body: "htp:\n  port: 1\n", msg: "htp"},
		{name: "bad duration", body: "jwt:\n  access_token_ttl: soon\n", msg: "jwt.access_token_ttl"},
		{name: "bad port", body: "http:\n  port: 70000\n", msg: "http.port"},
		{name: "zero catch-up", body: "cycle:\n  max_catch_up_steps: 0\n", msg: "cycle.max_catch_up_steps"},
		{name: "bad log level", body: "log:\n  level: loud\n", msg: "log.level"},
		{name: "bad env int", body: "", env: map[string]string{"HTTP_PORT": "abc"}, msg: "HTTP_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

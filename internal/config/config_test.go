package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	got, err := load(envLookup(nil), nil)
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.AuthEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Parallel()

	got, err := load(envLookup(map[string]string{
		"HTTP_ADDR":            ":9000",
		"TODO_STORE":           "database",
		"DB_DRIVER":            "sqlite",
		"DB_PATH":              "/tmp/x.db",
		"AUTH_SECRET":          "s3cret",
		"HTTP_REQUEST_TIMEOUT": "750ms",
		"OTEL_TRACES_EXPORTER": "stdout",
	}), nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", got.HTTPAddr)
	assert.Equal(t, StoreDatabase, got.Store)
	assert.Equal(t, "sqlite", got.DB.Driver)
	assert.Equal(t, "/tmp/x.db", got.DB.Path)
	assert.True(t, got.AuthEnabled())
	assert.Equal(t, 750*time.Millisecond, got.RequestTimeout)
	assert.Equal(t, "stdout", got.OTELExporter)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)

	got, err := load(envLookup(map[string]string{"HTTP_REQUEST_TIMEOUT": "soon"}), zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, got.RequestTimeout)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "HTTP_REQUEST_TIMEOUT", logs.All()[0].ContextMap()["key"])
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "todo.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr = ":7000"
store = "database"
request_timeout = "5s"

[db]
driver = "mysql"
host = "db.internal"
`), 0o600))

	got, err := load(envLookup(map[string]string{
		"TODO_CONFIG": path,
		"HTTP_ADDR":   ":7001",
	}), nil)
	require.NoError(t, err)

	assert.Equal(t, ":7001", got.HTTPAddr, "env wins over file")
	assert.Equal(t, StoreDatabase, got.Store)
	assert.Equal(t, "db.internal", got.DB.Host)
	assert.Equal(t, "3306", got.DB.Port, "unset file keys keep defaults")
	assert.Equal(t, 5*time.Second, got.RequestTimeout)
}

func TestLoad_BadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "todo.toml")
	require.NoError(t, os.WriteFile(path, []byte("store = "), 0o600))

	_, err := load(envLookup(map[string]string{"TODO_CONFIG": path}), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Store = "redis"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store = StoreDatabase
	cfg.DB.Driver = "postgres"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.OTELExporter = "otlp"
	require.Error(t, cfg.Validate())
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)

	_, err = tmpfile.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	return tmpfile.Name()
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9091
  host: "127.0.0.1"

database:
  host: "testdb"
  port: 5432
  user: "testuser"
  password: "testpass"
  dbname: "testdb"

auth:
  jwtSecret: "0123456789abcdef-test"

tenant:
  baseDomain: "vidfaq.test"
  operatorLabels: ["app", "admin"]

fetcher:
  thumbnailTimeout: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9091, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "testdb", cfg.Database.Host)
	assert.Equal(t, "testdb", cfg.Database.DBName)
	assert.Equal(t, "vidfaq.test", cfg.Tenant.BaseDomain)
	assert.Equal(t, []string{"app", "admin"}, cfg.Tenant.OperatorLabels)
	assert.Equal(t, 5*time.Second, cfg.Fetcher.ThumbnailTimeout)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwtSecret: "0123456789abcdef-test"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10, cfg.Collection.DefaultVideoLimit)
	assert.Equal(t, "yt-dlp", cfg.Fetcher.YtDlpPath)
	assert.Equal(t, 2*time.Minute, cfg.Fetcher.CaptionTimeout)
	assert.Equal(t, []string{"app", "vidfaq"}, cfg.Tenant.OperatorLabels)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GalleryTTL)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  host: "filedb"
`)

	t.Setenv("DATABASE_HOST", "envdb")
	t.Setenv("AUTH_JWTSECRET", "from-environment-secret")
	t.Setenv("COLLECTION_DEFAULTVIDEOLIMIT", "25")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "envdb", cfg.Database.Host)
	assert.Equal(t, "from-environment-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 25, cfg.Collection.DefaultVideoLimit)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing", content: "server:\n  port: 8080\n"},
		{name: "too short", content: "auth:\n  jwtSecret: short\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "auth.jwtSecret")
		})
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	assert.Error(t, err)
}

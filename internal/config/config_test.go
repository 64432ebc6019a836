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

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8081
jwt:
  secret: from-file
rules:
  version: "2"
  one_time_diseases: [measles, mumps, chickenpox, rubella]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, "2", cfg.Rules.Version)
	assert.Equal(t, []string{"measles", "mumps", "chickenpox", "rubella"}, cfg.Rules.OneTimeDiseases)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, 32, cfg.Realtime.SubscriberBuffer)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: from-file
database:
  host: db.internal
`)
	t.Setenv("MEDHIST_JWT_SECRET", "from-env")
	t.Setenv("MEDHIST_DATABASE_HOST", "override.internal")
	t.Setenv("MEDHIST_DATABASE_QUERY_TIMEOUT", "2s")
	t.Setenv("MEDHIST_RULES_ONE_TIME_DISEASES", "measles,rubella")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 2*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, []string{"measles", "rubella"}, cfg.Rules.OneTimeDiseases)
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 3000\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", c.URL())
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cnav/internal/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("server:\n  port: 9000\n"))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Server.RateLimit)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "cnav.db", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Session.Backend)
	assert.Equal(t, "gpt-4.1", cfg.OpenAI.Model)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.MinioEnabled())
	assert.False(t, cfg.OpenAIEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CNAV_DB_PASSWORD", "from-env")
	t.Setenv("CNAV_OPENAI_API_KEY", "sk-env")
	t.Setenv("CNAV_MINIO_SECRET_KEY", "minio-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: mysql
  host: db
  user: cnav
  password: from-file
  name: cnav
minio:
  endpoint: minio:9000
  secretKey: from-file
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "minio-env", cfg.Minio.SecretKey)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "cnav:from-env@tcp(db:3306)/cnav?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
	assert.True(t, cfg.MinioEnabled())
	assert.True(t, cfg.OpenAIEnabled())
}

func TestPostgresDSN(t *testing.T) {
	cfg, err := config.Parse([]byte("database:\n  driver: postgres\n  host: pg\n  user: cnav\n  password: p@ss\n  name: cnav\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://cnav:p%40ss@pg:5432/cnav?sslmode=disable", cfg.PostgresDSN())
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"driver":        "database:\n  driver: oracle\n",
		"session":       "session:\n  backend: memcached\n",
		"redis url":     "session:\n  backend: redis\n",
		"role":          "auth:\n  keys:\n    - {name: x, key: k1, role: root}\n",
		"company org":   "auth:\n  keys:\n    - {name: x, key: k1, role: company}\n",
		"duplicate key": "auth:\n  keys:\n    - {name: a, key: k1, role: admin}\n    - {name: b, key: k1, role: auditor}\n",
		"yaml":          "server: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

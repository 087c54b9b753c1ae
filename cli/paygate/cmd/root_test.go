package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tachi-labs/paygate/schema"
)

func writeCfg(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "paygate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	cfgFile = writeCfg(t, `
port: ":9000"
originUrl: http://origin.local
rateLimit: 50
kvBackend: redis
redis:
  addr: 127.0.0.1:6379
extraCrawlerPatterns:
  - examplebot
`)
	cfg = schema.Config{}
	t.Setenv("PAYGATE_RATELIMIT", "7")
	t.Setenv("PAYGATE_REDIS_DB", "3")
	t.Setenv("PAYGATE_LOGGERQUEUE", "256")

	require.NoError(t, loadConfig())
	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, "http://origin.local", cfg.OriginUrl)
	assert.Equal(t, 7, cfg.RateLimit)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 256, cfg.LoggerQueue)
	assert.Equal(t, []string{"examplebot"}, cfg.ExtraCrawlerPatterns)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "absent.yaml")
	cfg = schema.Config{}
	assert.Error(t, loadConfig())
}

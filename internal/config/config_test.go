package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"launchsync/internal/source"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadWith("", "", env(nil))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, "spacex-launches-dev", cfg.Table)
	require.Equal(t, "dynamodb", cfg.StateBackend)
	require.Equal(t, source.DefaultURL, cfg.SourceURL)
	require.Equal(t, 6*time.Hour, cfg.ScheduleInterval)
	require.NoError(t, cfg.Validate())
}

func TestLayering(t *testing.T) {
	yml := writeFile(t, "launchsync.yaml", `
table: from-yaml
state_backend: pebble
fetch_timeout: 10s
redis:
  address: yaml-redis:6379
  db: 2
`)
	dotenv := writeFile(t, ".env", "STATE_BACKEND=badger\nSCHEDULE_INTERVAL=90\nHTTP_ADDR=:9000\n")

	cfg, err := LoadWith(yml, dotenv, env(map[string]string{
		"STATE_BACKEND": "redis",
		"FETCH_TIMEOUT": "5s",
	}))
	require.NoError(t, err)
	require.Equal(t, "from-yaml", cfg.Table)
	require.Equal(t, "redis", cfg.StateBackend, "environment beats .env")
	require.Equal(t, 5*time.Second, cfg.FetchTimeout, "environment beats yaml")
	require.Equal(t, 90*time.Second, cfg.ScheduleInterval, "bare seconds")
	require.Equal(t, ":9000", cfg.HTTPAddr)
	require.Equal(t, "yaml-redis:6379", cfg.Redis.Address)
	require.Equal(t, 2, cfg.Redis.DB)
}

func TestMissingDotenvIsIgnored(t *testing.T) {
	cfg, err := LoadWith("", filepath.Join(t.TempDir(), "nope.env"), env(nil))
	require.NoError(t, err)
	require.Equal(t, Default().Table, cfg.Table)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadWith(filepath.Join(t.TempDir(), "missing.yaml"), "", env(nil))
	require.True(t, Error.Has(err))

	bad := writeFile(t, "bad.yaml", "table: [unterminated")
	_, err = LoadWith(bad, "", env(nil))
	require.True(t, Error.Has(err))

	_, err = LoadWith("", "", env(map[string]string{"FETCH_TIMEOUT": "soon"}))
	require.True(t, Error.Has(err))
	require.Contains(t, err.Error(), "FETCH_TIMEOUT")

	_, err = LoadWith("", "", env(map[string]string{"REDIS_DB": "zero"}))
	require.True(t, Error.Has(err))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.StateBackend = "cassandra"
	cfg.ChangelogSink = "kafka"
	cfg.ScheduleInterval = 0
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cassandra")
	require.Contains(t, err.Error(), "KAFKA_BOOTSTRAP")
	require.Contains(t, err.Error(), "schedule interval")

	cfg = Default()
	cfg.LogLevel = "loud"
	require.Error(t, cfg.Validate())
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	t.Setenv("DYNAMODB_TABLE_NAME", "from-env")
	t.Setenv("STATE_BACKEND", "badger")

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	f := BindFlags(set)
	require.NoError(t, set.Parse([]string{
		"-env-file", "",
		"-state-backend", "memory",
		"-schedule-interval", "15m",
	}))

	cfg, err := f.Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Table, "unset flag keeps env value")
	require.Equal(t, "memory", cfg.StateBackend)
	require.Equal(t, 15*time.Minute, cfg.ScheduleInterval)
}

func TestFlagsValidate(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	f := BindFlags(set)
	require.NoError(t, set.Parse([]string{"-env-file", "", "-state-backend", "etcd"}))
	_, err := f.Load()
	require.True(t, Error.Has(err))
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	log, err := cfg.Logger()
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(-1))
}

func TestS3Settings(t *testing.T) {
	cfg, err := LoadWith("", "", env(map[string]string{
		"SNAPSHOT_BUCKET": "launch-backups",
		"AWS_REGION":      "us-east-2",
		"S3_ENDPOINT":     "http://localhost:9000",
	}))
	require.NoError(t, err)
	s3 := cfg.S3()
	require.Equal(t, "launch-backups", s3.Bucket)
	require.Equal(t, "us-east-2", s3.Region)
	require.Equal(t, "http://localhost:9000", s3.Endpoint)
	require.Equal(t, "us-east-2", cfg.Dynamo().Region)
	require.Equal(t, cfg.Table, cfg.Dynamo().Table)
}

// Package config layers defaults, a YAML file, a .env file, the process
// environment and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"launchsync/internal/snapshot"
	"launchsync/internal/source"
	"launchsync/internal/state"
)

// Error is the class of configuration failures.
var Error = errs.Class("config")

type Config struct {
	Table        string        `yaml:"table"`
	StateBackend string        `yaml:"state_backend"` // dynamodb|pebble|badger|redis|memory
	SourceURL    string        `yaml:"source_url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	AWSRegion      string            `yaml:"aws_region"`
	DynamoEndpoint string            `yaml:"dynamodb_endpoint"`
	Redis          state.RedisConfig `yaml:"redis"`
	PebbleDir      string            `yaml:"pebble_dir"`
	BadgerDir      string            `yaml:"badger_dir"`

	ChangelogSink  string `yaml:"changelog_sink"` // none|file|kafka|both
	ChangelogDir   string `yaml:"changelog_dir"`
	KafkaBootstrap string `yaml:"kafka_bootstrap"`
	ChangelogTopic string `yaml:"changelog_topic"`

	ScheduleInterval time.Duration     `yaml:"schedule_interval"`
	HTTPAddr         string            `yaml:"http_addr"`
	SnapshotDir      string            `yaml:"snapshot_dir"`
	SnapshotS3       snapshot.S3Config `yaml:"snapshot_s3"`
	LogLevel         string            `yaml:"log_level"`
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		Table:            "spacex-launches-dev",
		StateBackend:     "dynamodb",
		SourceURL:        source.DefaultURL,
		FetchTimeout:     source.DefaultTimeout,
		Redis:            state.RedisConfig{Address: "localhost:6379"},
		PebbleDir:        "./data/pebble",
		BadgerDir:        "./data/badger",
		ChangelogSink:    "none",
		ChangelogDir:     "./changelog",
		ChangelogTopic:   "launchsync.changelog",
		ScheduleInterval: 6 * time.Hour,
		HTTPAddr:         ":8080",
		SnapshotDir:      "./snapshots",
		LogLevel:         "info",
	}
}

// Load builds a Config from the YAML file at path (optional), the .env file
// at envFile (optional, missing is fine) and the process environment.
func Load(path, envFile string) (Config, error) {
	return LoadWith(path, envFile, os.LookupEnv)
}

// LoadWith is Load with an injectable environment lookup.
func LoadWith(path, envFile string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, Error.New("read %s: %v", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, Error.New("parse %s: %v", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, Error.New("read %s: %v", envFile, err)
		default:
			dotenv = m
		}
	}
	// the real environment wins over .env
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(get); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(get func(string) (string, bool)) error {
	strs := map[string]*string{
		"DYNAMODB_TABLE_NAME": &c.Table,
		"STATE_BACKEND":       &c.StateBackend,
		"SPACEX_API_URL":      &c.SourceURL,
		"AWS_REGION":          &c.AWSRegion,
		"DYNAMODB_ENDPOINT":   &c.DynamoEndpoint,
		"REDIS_ADDR":          &c.Redis.Address,
		"REDIS_PASSWORD":      &c.Redis.Password,
		"PEBBLE_DIR":          &c.PebbleDir,
		"BADGER_DIR":          &c.BadgerDir,
		"CHANGELOG_SINK":      &c.ChangelogSink,
		"CHANGELOG_DIR":       &c.ChangelogDir,
		"KAFKA_BOOTSTRAP":     &c.KafkaBootstrap,
		"CHANGELOG_TOPIC":     &c.ChangelogTopic,
		"HTTP_ADDR":           &c.HTTPAddr,
		"SNAPSHOT_DIR":        &c.SnapshotDir,
		"SNAPSHOT_BUCKET":     &c.SnapshotS3.Bucket,
		"SNAPSHOT_PREFIX":     &c.SnapshotS3.Prefix,
		"S3_ENDPOINT":         &c.SnapshotS3.Endpoint,
		"LOG_LEVEL":           &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok && v != "" {
			*dst = v
		}
	}

	durs := map[string]*time.Duration{
		"FETCH_TIMEOUT":     &c.FetchTimeout,
		"SCHEDULE_INTERVAL": &c.ScheduleInterval,
	}
	for key, dst := range durs {
		v, ok := get(key)
		if !ok || v == "" {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return Error.New("%s: %v", key, err)
		}
		*dst = d
	}

	if v, ok := get("REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Error.New("REDIS_DB: %v", err)
		}
		c.Redis.DB = n
	}
	return nil
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate rejects settings no binary can run with.
func (c Config) Validate() error {
	var group errs.Group
	switch c.StateBackend {
	case "dynamodb", "pebble", "badger", "redis", "memory":
	default:
		group.Add(Error.New("unknown state backend %q", c.StateBackend))
	}
	switch c.ChangelogSink {
	case "", "none", "file", "kafka", "both":
	default:
		group.Add(Error.New("unknown changelog sink %q", c.ChangelogSink))
	}
	if (c.ChangelogSink == "kafka" || c.ChangelogSink == "both") && c.KafkaBootstrap == "" {
		group.Add(Error.New("changelog sink %q needs KAFKA_BOOTSTRAP", c.ChangelogSink))
	}
	if c.Table == "" {
		group.Add(Error.New("empty table name"))
	}
	if c.ScheduleInterval <= 0 {
		group.Add(Error.New("schedule interval must be positive, got %s", c.ScheduleInterval))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		group.Add(Error.Wrap(err))
	}
	return group.Err()
}

// S3 returns the snapshot mirror settings, sharing the AWS region with DynamoDB.
func (c Config) S3() snapshot.S3Config {
	s3 := c.SnapshotS3
	if s3.Region == "" {
		s3.Region = c.AWSRegion
	}
	return s3
}

// Dynamo returns the DynamoDB backend settings.
func (c Config) Dynamo() state.DynamoConfig {
	return state.DynamoConfig{Table: c.Table, Region: c.AWSRegion, Endpoint: c.DynamoEndpoint}
}

// Logger builds the production JSON logger at the configured level.
func (c Config) Logger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// Flags holds command-line overrides. Only flags given on the command line
// are applied, so unset flags never clobber file or environment values.
type Flags struct {
	Path    string
	EnvFile string

	fs     *flag.FlagSet
	shadow Config
	apply  map[string]func(*Config)
}

// BindFlags registers the shared flags on fs.
func BindFlags(set *flag.FlagSet) *Flags {
	f := &Flags{fs: set, apply: map[string]func(*Config){}}
	set.StringVar(&f.Path, "config", "", "YAML config file")
	set.StringVar(&f.EnvFile, "env-file", ".env", "dotenv file, ignored when missing")

	f.str("table", "DynamoDB table name / key namespace", func(c *Config) *string { return &c.Table })
	f.str("state-backend", "state backend: dynamodb|pebble|badger|redis|memory", func(c *Config) *string { return &c.StateBackend })
	f.str("source-url", "launch listing URL (http(s):// or file://)", func(c *Config) *string { return &c.SourceURL })
	f.dur("fetch-timeout", "source request timeout", func(c *Config) *time.Duration { return &c.FetchTimeout })
	f.str("redis-addr", "redis address", func(c *Config) *string { return &c.Redis.Address })
	f.str("pebble-dir", "pebble data directory", func(c *Config) *string { return &c.PebbleDir })
	f.str("badger-dir", "badger data directory", func(c *Config) *string { return &c.BadgerDir })
	f.str("changelog-sink", "changelog sink: none|file|kafka|both", func(c *Config) *string { return &c.ChangelogSink })
	f.str("kafka-bootstrap", "kafka bootstrap servers, e.g. localhost:9092", func(c *Config) *string { return &c.KafkaBootstrap })
	f.dur("schedule-interval", "scheduled run interval in serve mode", func(c *Config) *time.Duration { return &c.ScheduleInterval })
	f.str("http-addr", "listen address in serve mode", func(c *Config) *string { return &c.HTTPAddr })
	f.str("snapshot-dir", "snapshot directory", func(c *Config) *string { return &c.SnapshotDir })
	f.str("snapshot-bucket", "S3 bucket mirroring snapshots (empty disables)", func(c *Config) *string { return &c.SnapshotS3.Bucket })
	f.str("log-level", "debug|info|warn|error", func(c *Config) *string { return &c.LogLevel })
	return f
}

func (f *Flags) str(name, usage string, field func(*Config) *string) {
	f.fs.StringVar(field(&f.shadow), name, "", usage)
	f.apply[name] = func(c *Config) { *field(c) = *field(&f.shadow) }
}

func (f *Flags) dur(name, usage string, field func(*Config) *time.Duration) {
	f.fs.DurationVar(field(&f.shadow), name, 0, usage)
	f.apply[name] = func(c *Config) { *field(c) = *field(&f.shadow) }
}

// Load is called after the flag set is parsed. It layers the config sources,
// applies the flags that were set and validates the result.
func (f *Flags) Load() (Config, error) {
	cfg, err := Load(f.Path, f.EnvFile)
	if err != nil {
		return Config{}, err
	}
	f.Apply(&cfg)
	return cfg, cfg.Validate()
}

// Apply copies explicitly set flags into cfg.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		if a, ok := f.apply[fl.Name]; ok {
			a(cfg)
		}
	})
}

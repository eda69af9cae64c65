package state

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"launchsync/internal/model"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RedisStore keeps each launch as a JSON string under "<table>:<launch_id>".
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig, table string) (*RedisStore, error) {
	if cfg.Address == "" {
		cfg.Address = "localhost:6379"
	}
	// testcontainers and most dashboards hand out URLs
	cfg.Address = strings.TrimPrefix(strings.TrimPrefix(cfg.Address, "redis://"), "rediss://")
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		// no client-side retries: a failed write is reported per record
		MaxRetries: -1,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, Error.New("redis ping %s: %v", cfg.Address, err)
	}
	return NewRedisStoreWith(client, table), nil
}

// NewRedisStoreWith wraps an existing client.
func NewRedisStoreWith(client *redis.Client, table string) *RedisStore {
	return &RedisStore{client: client, prefix: table + ":"}
}

func (r *RedisStore) Close() error { return r.client.Close() }

func (r *RedisStore) key(launchID string) string { return r.prefix + launchID }

func (r *RedisStore) Get(ctx context.Context, launchID string) (model.Launch, bool, error) {
	v, err := r.client.Get(ctx, r.key(launchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Launch{}, false, nil
	}
	if err != nil {
		return model.Launch{}, false, Error.Wrap(err)
	}
	l, err := decodeLaunch(v)
	if err != nil {
		return model.Launch{}, false, Error.Wrap(err)
	}
	return l, true, nil
}

func (r *RedisStore) Put(ctx context.Context, l model.Launch) error {
	if l.LaunchID == "" {
		return Error.New("empty launch_id")
	}
	v, err := encodeLaunch(l)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(r.client.Set(ctx, r.key(l.LaunchID), v, 0).Err())
}

func (r *RedisStore) Range(ctx context.Context, fn func(l model.Launch) error) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		v, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// deleted between SCAN and GET
			continue
		}
		if err != nil {
			return Error.Wrap(err)
		}
		l, err := decodeLaunch(v)
		if err != nil {
			return Error.New("decode %q: %v", iter.Val(), err)
		}
		if err := fn(l); err != nil {
			return Error.Wrap(err)
		}
	}
	return Error.Wrap(iter.Err())
}

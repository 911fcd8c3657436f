package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is a Store shared by every API replica.
type Redis struct {
	redisdb *redis.Client
	ttl     time.Duration
}

func NewRedis(cfg RedisConfig) *Redis {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &Redis{redisdb: redisdb, ttl: ttl}
}

// Ping checks redis connectivity.
func (c *Redis) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.redisdb.Close()
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.redisdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) error {
	return c.redisdb.Set(ctx, key, val, c.ttl).Err()
}

func (c *Redis) Delete(ctx context.Context, key string) error {
	return c.redisdb.Del(ctx, key).Err()
}

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache miss")

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.c.Del(ctx, keys...).Err()
}

// NopKV используется, когда Redis не настроен: всегда промах.
type NopKV struct{}

func (NopKV) Get(context.Context, string) (string, error)              { return "", ErrMiss }
func (NopKV) Set(context.Context, string, string, time.Duration) error { return nil }
func (NopKV) Del(context.Context, ...string) error                     { return nil }

// Connect возвращает RedisKV для непустого адреса и NopKV иначе.
func Connect(ctx context.Context, addr, password string) (KV, func() error, error) {
	if addr == "" {
		return NopKV{}, func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return NewRedisKV(client), client.Close, nil
}

// PropertyKey: ключ публичного представления объекта.
func PropertyKey(propertyID string) string {
	return "tour:property:" + propertyID
}

package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const tagPrefix = "cachetag:"

type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// ConnectRedis returns nil when addr is empty or the server does not answer,
// leaving the caller to pick another store.
func ConnectRedis(ctx context.Context, addr, password string) *redis.Client {
	if addr == "" {
		log.Println("⚠️ REDIS_ADDR not set, using in-memory cache")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("❌ Redis unreachable (%v), using in-memory cache", err)
		_ = rdb.Close()
		return nil
	}
	log.Println("✅ Redis connected")
	return rdb
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration, tags ...string) error {
	full := r.prefix + key
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, full, val, ttl)
		for _, t := range tags {
			tk := r.prefix + tagPrefix + t
			p.SAdd(ctx, tk, full)
			if ttl > 0 {
				p.Expire(ctx, tk, 2*ttl)
			}
		}
		return nil
	})
	return err
}

func (r *RedisStore) Invalidate(ctx context.Context, tags ...string) error {
	for _, t := range tags {
		tk := r.prefix + tagPrefix + t
		keys, err := r.rdb.SMembers(ctx, tk).Result()
		if err != nil {
			return err
		}
		keys = append(keys, tk)
		if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return nil
}

package cache

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"flight_search/internal/metrics"
)

// RedisOptions selects the redis database holding the timetable snapshot.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache is a Cache backed by one redis client. Every call is recorded in
// the cache operation metrics.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(opts RedisOptions) *RedisCache {
	return &RedisCache{rdb: redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})}
}

func (r *RedisCache) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }

func (r *RedisCache) Close() error { return r.rdb.Close() }

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := r.observe("get", func() (string, error) {
		b, err := r.rdb.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			return metrics.CacheResultMiss, nil
		case err != nil:
			return metrics.CacheResultError, err
		}
		value = b
		return metrics.CacheResultOK, nil
	})
	return value, value != nil, err
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.observe("set", func() (string, error) {
		return resultOf(r.rdb.Set(ctx, key, value, ttl).Err())
	})
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.observe("del", func() (string, error) {
		return resultOf(r.rdb.Del(ctx, keys...).Err())
	})
}

func (r *RedisCache) observe(op string, fn func() (string, error)) error {
	start := time.Now()
	result, err := fn()
	metrics.ObserveCacheOp(op, result, time.Since(start))
	return err
}

func resultOf(err error) (string, error) {
	if err != nil {
		return metrics.CacheResultError, err
	}
	return metrics.CacheResultOK, nil
}

// CollectMemory publishes the server's used_memory every interval until ctx
// is done.
func (r *RedisCache) CollectMemory(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	collect := func() {
		var info string
		err := r.observe("info", func() (string, error) {
			var err error
			info, err = r.rdb.Info(ctx, "memory").Result()
			return resultOf(err)
		})
		if err != nil {
			logger.Warn("redis info memory", "error", err)
			return
		}
		if n, ok := usedMemory(info); ok {
			metrics.SetCacheMemoryBytes(n)
		}
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		collect()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				collect()
			}
		}
	}()
}

// usedMemory extracts used_memory from an INFO memory reply.
func usedMemory(info string) (int64, bool) {
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		v, found := strings.CutPrefix(strings.TrimSpace(sc.Text()), "used_memory:")
		if !found {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"hisabkitab/backend/internal/domain"
)

// RedisCache is the shared Redis connection. Reports and Settings expose it
// through the narrower cache interfaces.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(addr string, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{client: client, prefix: "hisabkitab:"}
}

func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Reports() ReportCache {
	return redisReports{c}
}

func (c *RedisCache) Settings() SettingsCache {
	return redisSettings{c}
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
}

type redisReports struct{ c *RedisCache }

func (r redisReports) Get(ctx context.Context, key string) (*domain.Dashboard, bool, error) {
	var d domain.Dashboard
	ok, err := r.c.getJSON(ctx, "report:"+key, &d)
	if !ok || err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

func (r redisReports) Set(ctx context.Context, key string, value *domain.Dashboard, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	return r.c.setJSON(ctx, "report:"+key, value, ttl)
}

type redisSettings struct{ c *RedisCache }

func settingsKey(companyID int64) string {
	return fmt.Sprintf("settings:%d", companyID)
}

func (r redisSettings) Get(ctx context.Context, companyID int64) (*domain.BusinessSettings, bool, error) {
	var s domain.BusinessSettings
	ok, err := r.c.getJSON(ctx, settingsKey(companyID), &s)
	if !ok || err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

func (r redisSettings) Set(ctx context.Context, companyID int64, value *domain.BusinessSettings, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	return r.c.setJSON(ctx, settingsKey(companyID), value, ttl)
}

func (r redisSettings) Invalidate(ctx context.Context, companyID int64) error {
	return r.c.client.Del(ctx, r.c.prefix+settingsKey(companyID)).Err()
}

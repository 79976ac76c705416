// Package cache keeps per-store app data close to the webhook path so
// bursts of triggers from one store do not hammer the Store API.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/redis/go-redis/v9"

	"github.com/ecomplus/app-fb-conversions/internal/model"
	"github.com/ecomplus/app-fb-conversions/pkg/log"
)

// Source is the authoritative app data reader (the Store API client)
type Source interface {
	GetAppData(ctx context.Context, storeID int64) (*model.AppData, error)
}

// Options cache tuning
type Options struct {
	// LocalTTL L1 entry lifetime; zero disables the local cache
	LocalTTL time.Duration
	// RedisTTL L2 entry lifetime
	RedisTTL time.Duration
	// KeyPrefix L2 key namespace
	KeyPrefix string
}

// AppDataCache layered app data cache: L1 local memory, optional L2
// Redis, then the Store API. Fetch errors are never cached.
type AppDataCache struct {
	source      Source
	localCache  *bigcache.BigCache
	redisClient redis.Cmdable
	keyPrefix   string
	redisTTL    time.Duration
}

// New creates an app data cache. redisClient may be nil to run with
// the local layer only.
func New(source Source, redisClient redis.Cmdable, opts Options) (*AppDataCache, error) {
	c := &AppDataCache{
		source:      source,
		redisClient: redisClient,
		keyPrefix:   opts.KeyPrefix,
		redisTTL:    opts.RedisTTL,
	}
	if c.keyPrefix == "" {
		c.keyPrefix = "fbconv:appdata"
	}

	if opts.LocalTTL > 0 {
		localCache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(opts.LocalTTL))
		if err != nil {
			return nil, fmt.Errorf("failed to create local cache: %w", err)
		}
		c.localCache = localCache
	}

	return c, nil
}

// GetAppData returns the store's app data, preferring cached copies
func (c *AppDataCache) GetAppData(ctx context.Context, storeID int64) (*model.AppData, error) {
	key := c.key(storeID)

	if c.localCache != nil {
		if data, err := c.localCache.Get(key); err == nil {
			if appData, derr := decode(data); derr == nil {
				return appData, nil
			}
			// corrupt entry: drop it and fall through to the next layer
			_ = c.localCache.Delete(key)
		}
	}

	if c.redisClient != nil {
		data, err := c.redisClient.Get(ctx, key).Bytes()
		if err == nil {
			if appData, derr := decode(data); derr == nil {
				c.setLocal(key, data)
				return appData, nil
			}
		} else if err != redis.Nil {
			log.WithFields(map[string]interface{}{
				"store_id": storeID,
				"error":    err.Error(),
			}).Warn("App data redis read failed")
		}
	}

	appData, err := c.source.GetAppData(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if data, merr := json.Marshal(appData); merr == nil {
		c.setLocal(key, data)
		if c.redisClient != nil {
			if rerr := c.redisClient.Set(ctx, key, data, c.redisTTL).Err(); rerr != nil {
				log.WithFields(map[string]interface{}{
					"store_id": storeID,
					"error":    rerr.Error(),
				}).Warn("App data redis write failed")
			}
		}
	}

	return appData, nil
}

// Invalidate drops the cached entry for a store
func (c *AppDataCache) Invalidate(ctx context.Context, storeID int64) {
	key := c.key(storeID)
	if c.localCache != nil {
		_ = c.localCache.Delete(key)
	}
	if c.redisClient != nil {
		_ = c.redisClient.Del(ctx, key).Err()
	}
}

func (c *AppDataCache) key(storeID int64) string {
	return c.keyPrefix + ":" + strconv.FormatInt(storeID, 10)
}

func (c *AppDataCache) setLocal(key string, data []byte) {
	if c.localCache == nil {
		return
	}
	if err := c.localCache.Set(key, data); err != nil {
		log.WithField("error", err.Error()).Debug("App data local cache write failed")
	}
}

func decode(data []byte) (*model.AppData, error) {
	var appData model.AppData
	if err := json.Unmarshal(data, &appData); err != nil {
		return nil, fmt.Errorf("failed to decode cached app data: %w", err)
	}
	return &appData, nil
}

package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canopy-network/trackx/pkg/redis"
	"go.uber.org/zap"
)

// cached serves key from the response cache when possible. Misses, and every call when
// caching is disabled, go through singleflight so identical concurrent requests share one load.
// prefix is the invalidation scope of key: a load that overlaps an invalidation of prefix
// is returned to its callers but never cached, and later requests do not join it.
func cached[T any](ctx context.Context, c *Controller, key, prefix, operation string, load func(context.Context) (T, error)) (T, error) {
	var out T
	store := c.App.Cache

	if store != nil {
		err := store.GetJSON(ctx, key, &out)
		if err == nil {
			c.App.Metrics.CacheHit()
			return out, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.App.Logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.App.Metrics.CacheMiss()
	}

	gen := c.App.Generations.Get(prefix)
	v, err, _ := c.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (interface{}, error) {
		// detached so one canceled caller does not fail the others
		lctx := context.WithoutCancel(ctx)
		start := time.Now()
		res, err := load(lctx)
		c.App.Metrics.ObserveStore(operation, start, err)
		if err != nil {
			return nil, err
		}
		if store != nil && c.App.Generations.Get(prefix) == gen {
			if err := store.SetJSON(lctx, key, res, 0); err != nil {
				c.App.Logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
			}
			// invalidated between the check and the write
			if c.App.Generations.Get(prefix) != gen {
				_, _ = store.DeletePrefix(lctx, key)
			}
		}
		return res, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

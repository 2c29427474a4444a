// Package cache holds the in-process response cache used by the query API when Redis is disabled.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/canopy-network/trackx/pkg/redis"
)

// ErrCacheMiss is the sentinel of pkg/redis, so callers check a single error for either cache.
var ErrCacheMiss = redis.ErrCacheMiss

// Local is a size-bounded LRU with a fixed TTL. Values are stored as JSON so a
// cached response can never be mutated by the caller that loaded it.
type Local struct {
	cache *lru.LRU[string, []byte]
}

// NewLocal creates a cache holding at most size entries, each for ttl.
func NewLocal(size int, ttl time.Duration) *Local {
	if size < 10 {
		size = 10
	}
	return &Local{cache: lru.NewLRU[string, []byte](size, nil, ttl)}
}

func (l *Local) GetJSON(_ context.Context, key string, dest interface{}) error {
	raw, ok := l.cache.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON stores value at key. ttl is ignored: every entry lives for the TTL given to NewLocal.
func (l *Local) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	l.cache.Add(key, raw)
	return nil
}

func (l *Local) DeletePrefix(_ context.Context, prefix string) (int, error) {
	removed := 0
	for _, key := range l.cache.Keys() {
		if strings.HasPrefix(key, prefix) && l.cache.Remove(key) {
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live entries.
func (l *Local) Len() int {
	return l.cache.Len()
}

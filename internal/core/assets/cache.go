package assets

import (
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/entityforge/entityforge/internal/core/observability/log"
)

// Cache memoizes loaded assets by hashed filename. Load failures are
// cached as zero-size placeholders, so a missing asset is only probed
// once; restart the process (or use a fresh Cache) to pick up assets that
// appear later.
type Cache struct {
	log   log.Log
	group singleflight.Group

	mu     sync.RWMutex
	assets map[uint64]*Asset
}

func NewCache(logger log.Log) *Cache {
	return &Cache{
		log:    logger,
		assets: make(map[uint64]*Asset),
	}
}

// GetOrLoad returns the cached asset for key, invoking load on first use.
// Concurrent first requests for the same key share a single load call.
// The result is never nil: a failed load yields a cached zero-size asset.
func (c *Cache) GetOrLoad(key uint64, filename string, load func() (*Asset, error)) *Asset {
	c.mu.RLock()
	asset, ok := c.assets[key]
	c.mu.RUnlock()
	if ok {
		return asset
	}

	v, _, _ := c.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		c.mu.RLock()
		cached, present := c.assets[key]
		c.mu.RUnlock()
		if present {
			return cached, nil
		}

		loaded, err := load()
		if err != nil {
			c.log.Error("asset load failed",
				zap.String("filename", filename),
				zap.Error(err))
			loaded = &Asset{Filename: filename}
		}

		c.mu.Lock()
		c.assets[key] = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	return v.(*Asset)
}

// Len reports the number of cached entries, including negative ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.assets)
}

package commands

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

type cacheItem struct {
	Image      []byte
	Preview    []byte
	Caption    string
	Expiration time.Time
}

var (
	chartCache   = make(map[string]*cacheItem)
	chartCacheMu sync.Mutex
)

func chartCacheKey(symbols []string, days int) string {
	return strings.Join(symbols, ",") + "|" + strconv.Itoa(days)
}

func cacheGet(key string) (*cacheItem, bool) {
	chartCacheMu.Lock()
	defer chartCacheMu.Unlock()

	if item, found := chartCache[key]; found && time.Now().Before(item.Expiration) {
		return item, true
	}
	return nil, false
}

func cacheSet(key string, image, preview []byte, caption string, duration time.Duration) {
	chartCacheMu.Lock()
	defer chartCacheMu.Unlock()

	now := time.Now()
	for k, item := range chartCache {
		if now.After(item.Expiration) {
			delete(chartCache, k)
		}
	}

	chartCache[key] = &cacheItem{
		Image:      image,
		Preview:    preview,
		Caption:    caption,
		Expiration: time.Now().Add(duration),
	}
}

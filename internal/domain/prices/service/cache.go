package service

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

// tableCache memoizes loaded tables for the life of the process. Entries
// are keyed by dataset and source identity; changes to the files on disk
// are not noticed until the entry is cleared.
type tableCache struct {
	mu      sync.RWMutex
	entries map[string]*extract.Table
	group   singleflight.Group
}

func newTableCache() *tableCache {
	return &tableCache{entries: make(map[string]*extract.Table)}
}

func cacheKey(dataset string, src Source) string {
	parts := append([]string{dataset, src.Markdown, src.Fallback}, src.Seeds...)
	return strings.Join(parts, "\x00")
}

func (c *tableCache) get(key string) (*extract.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[key]
	return t, ok
}

// load returns the cached table or runs fn once for concurrent callers of
// the same key. Failed loads are not cached.
func (c *tableCache) load(key string, fn func() (*extract.Table, error)) (*extract.Table, bool, error) {
	if t, ok := c.get(key); ok {
		return t, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if t, ok := c.get(key); ok {
			return t, nil
		}
		t, err := fn()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*extract.Table), false, nil
}

// clear drops entries for one dataset, or all entries when dataset is
// empty, and returns how many were removed.
func (c *tableCache) clear(dataset string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dataset == "" {
		n := len(c.entries)
		c.entries = make(map[string]*extract.Table)
		return n
	}

	n := 0
	prefix := dataset + "\x00"
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *tableCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

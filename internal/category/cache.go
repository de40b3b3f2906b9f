package category

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/bloggera/bloggera/internal/domain"
)

const listKey = "categories"

// Lister fetches the category reference list.
type Lister interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// Cache holds the category list for a TTL. Concurrent misses share one request.
type Cache struct {
	lister Lister
	lru    *expirable.LRU[string, []domain.Category]
	group  singleflight.Group
}

// NewCache creates a cache over lister.
func NewCache(lister Lister, size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 1
	}
	return &Cache{
		lister: lister,
		lru:    expirable.NewLRU[string, []domain.Category](size, nil, ttl),
	}
}

// List returns the cached list, fetching it on a miss.
func (c *Cache) List(ctx context.Context) ([]domain.Category, error) {
	if cats, ok := c.lru.Get(listKey); ok {
		return slices.Clone(cats), nil
	}

	v, err, _ := c.group.Do(listKey, func() (any, error) {
		cats, err := c.lister.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(listKey, cats)
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]domain.Category)), nil
}

// Suggest lists categories and ranks them against query.
func (c *Cache) Suggest(ctx context.Context, query string, selected []domain.Category) ([]domain.Category, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return Suggest(all, query, selected, DefaultSuggestionLimit), nil
}

// Invalidate drops the cached list.
func (c *Cache) Invalidate() {
	c.lru.Purge()
}

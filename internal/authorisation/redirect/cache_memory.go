package redirect

import (
	"context"
	"sync"
	"time"

	id "xs2a/pkg/domain"
	"xs2a/pkg/platform/sentinel"
	"xs2a/pkg/requestcontext"
)

type entry struct {
	authorisationID id.AuthorisationID
	expiresAt       time.Time
}

// InMemoryCache backs tests and single-instance runs.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[id.RedirectID]entry
	ttl     time.Duration
}

func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{entries: make(map[id.RedirectID]entry), ttl: ttl}
}

func (c *InMemoryCache) Save(ctx context.Context, redirectID id.RedirectID, authorisationID id.AuthorisationID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[redirectID] = entry{
		authorisationID: authorisationID,
		expiresAt:       requestcontext.Now(ctx).Add(c.ttl),
	}
	return nil
}

func (c *InMemoryCache) Resolve(ctx context.Context, redirectID id.RedirectID) (id.AuthorisationID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[redirectID]
	if !ok || requestcontext.Now(ctx).After(e.expiresAt) {
		return "", sentinel.ErrExpired
	}
	return e.authorisationID, nil
}

func (c *InMemoryCache) Delete(_ context.Context, redirectID id.RedirectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, redirectID)
	return nil
}

// Purge drops expired entries; the server runs it periodically.
func (c *InMemoryCache) Purge(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for rid, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, rid)
			removed++
		}
	}
	return removed
}

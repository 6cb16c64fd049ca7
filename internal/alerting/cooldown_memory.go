package alerting

import (
	"context"
	"sync"
	"time"
)

const purgeThreshold = 1024

// MemoryCooldown is a process-local cooldown store. Suitable for a
// single monitor instance; use RedisCooldown when several instances
// share the alert duty.
type MemoryCooldown struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (c *MemoryCooldown) Acquire(_ context.Context, orgID, title string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key := cooldownKey(orgID, title)
	if deadline, ok := c.until[key]; ok && now.Before(deadline) {
		return false, nil
	}
	if len(c.until) >= purgeThreshold {
		c.purgeLocked(now)
	}
	c.until[key] = now.Add(ttl)
	return true, nil
}

func (c *MemoryCooldown) purgeLocked(now time.Time) {
	for k, deadline := range c.until {
		if !now.Before(deadline) {
			delete(c.until, k)
		}
	}
}

func cooldownKey(orgID, title string) string {
	return "alert:cooldown:" + orgID + ":" + title
}

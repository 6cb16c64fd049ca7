package alerting

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisCooldown backs the cooldown window with SET NX EX, so multiple
// monitor instances share one dedup window per (org, title).
type RedisCooldown struct {
	client *goredis.Client
}

func NewRedisCooldown(client *goredis.Client) *RedisCooldown {
	return &RedisCooldown{client: client}
}

func (c *RedisCooldown) Acquire(ctx context.Context, orgID, title string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, cooldownKey(orgID, title), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown setnx: %w", err)
	}
	return ok, nil
}

package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OrderViewCache is a read-through cache for rendered order views.
// It is best-effort: callers ignore cache errors, the DB stays the truth.
type OrderViewCache struct {
	RDB *redis.Client
}

func (c *OrderViewCache) Get(ctx context.Context, orderID string) ([]byte, bool) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderView, orderID)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *OrderViewCache) Set(ctx context.Context, orderID string, body []byte) {
	_ = c.RDB.Set(ctx, fmt.Sprintf(KeyOrderView, orderID), body, TTLOrderView).Err()
}

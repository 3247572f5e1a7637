package redisx

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// StockFlagStore keeps the stockwatch consumer's dedup marks and low-stock
// flags. Best-effort like the view cache.
type StockFlagStore struct {
	RDB     *redis.Client
	Service string
}

func (s *StockFlagStore) Seen(ctx context.Context, eventID string) bool {
	ok, _ := Exists(ctx, s.RDB, fmt.Sprintf(KeyDedup, s.Service, eventID))
	return ok
}

func (s *StockFlagStore) MarkSeen(ctx context.Context, eventID string) {
	_ = s.RDB.Set(ctx, fmt.Sprintf(KeyDedup, s.Service, eventID), "1", TTLDedup).Err()
}

func (s *StockFlagStore) FlagLow(ctx context.Context, productID string, remaining int) {
	_ = s.RDB.Set(ctx, fmt.Sprintf(KeyLowStock, productID), strconv.Itoa(remaining), TTLLowStock).Err()
}

package redisx

import "time"

const (
	// Cached order view JSON: order_view:{order_id}
	KeyOrderView = "order_view:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Low-stock flag set by stockwatch: lowstock:{product_id} -> remaining qty
	KeyLowStock = "lowstock:%s"
)

var (
	TTLOrderView = 5 * time.Minute
	TTLDedup     = 48 * time.Hour
	TTLLowStock  = 24 * time.Hour
)

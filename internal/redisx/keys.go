package redisx

import "time"

const (
	// Full-order read cache: order:{order_id} -> order JSON
	KeyOrderCache = "order:%s"

	// Address lookup cache: addr:{level}:{parent_id}
	KeyAddressCache = "addr:%s:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache   = 5 * time.Minute
	TTLAddressCache = 24 * time.Hour
	TTLDedup        = 48 * time.Hour
)

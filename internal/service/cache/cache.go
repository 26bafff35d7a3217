package cache

import "time"

// BytesCache is a minimal cache API storing raw bytes with TTL. The
// reference-data cache sits on top of it; backends are the in-process
// TTLCache (default) and Redis (shared across processes).
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
	DeleteBytes(keys ...string) error
}

// Package cache provides the TTL'd key/value store that sits under every
// external-source client. Each cache key is independent; there is no
// cross-key coordination.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-value store with per-entry TTL.
type Cache interface {
	// Get returns the value and true when the key is present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the value with the given TTL.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Close() error
}

// TTL classes per source kind. Geocoding and building-registry answers churn
// daily; parcel attributes are stable for about a week; nearby lookups are
// nearly live.
const (
	TTLGeocode       = 24 * time.Hour
	TTLParcel        = 7 * 24 * time.Hour
	TTLBuilding      = 24 * time.Hour
	TTLNearby        = 5 * time.Minute
	TTLAddressSearch = time.Hour
)

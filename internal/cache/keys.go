package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// AddressKey returns a cache key for a free-text address: a kind prefix plus
// the SHA-256 hex of the normalized (lowercased, trimmed) address.
func AddressKey(kind, address string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(address), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s:%x", kind, h)
}

// PNUKey returns a cache key for a parcel-scoped lookup.
func PNUKey(kind, pnu string) string {
	return kind + ":" + pnu
}

// CoordKey returns a cache key for a coordinate-scoped lookup, rounded to a
// fixed 6-decimal precision so nearby floats collide on purpose.
func CoordKey(kind string, lng, lat float64) string {
	return fmt.Sprintf("%s:%.6f_%.6f", kind, lng, lat)
}

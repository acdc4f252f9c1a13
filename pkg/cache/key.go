package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// KeyPrefix namespaces every chunk key in Redis.
const KeyPrefix = "tracking:chunk:"

// Key identifies a cached response by the ordered identifiers of its chunk.
type Key struct {
	IDs []string
}

// String generates a deterministic Redis key.
// Format: tracking:chunk:<sha256 of ids joined by newlines>
//
// Order matters: the same identifiers in a different order are a different
// request and map to a different key.
func (k Key) String() string {
	sum := sha256.Sum256([]byte(strings.Join(k.IDs, "\n")))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

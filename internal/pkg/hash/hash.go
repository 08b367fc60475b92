// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
)

// Partition maps key onto one of n buckets. The mapping is stable across
// processes. It returns 0 when n is not positive.
func Partition(key string, n int) int {
	if n <= 0 {
		return 0
	}
	h := sha256.Sum256([]byte(key))
	return int(binary.BigEndian.Uint64(h[:8]) % uint64(n))
}

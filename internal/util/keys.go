package util

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// BatchKey returns a deterministic short id for a key set: prefix plus the first
// 16 hex chars of a hash over the sorted members. Order of keys does not matter.
func BatchKey(prefix string, keys []string) string {
	s := make([]string, len(keys))
	copy(s, keys)
	sort.Strings(s)
	joined := strings.Join(s, "\x00")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%s:%x", prefix, sum)[:len(prefix)+1+16] // prefix + ":" + first 16 hex chars
}

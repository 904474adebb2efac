package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key derives the cache key for data. A target format other than "original"
// gets its own key so each output format is cached separately.
func Key(data []byte, format string) string {
	key := fmt.Sprintf("%016x", xxhash.Sum64(data))
	if format != "" && format != "original" {
		key += "-" + format
	}
	return key
}

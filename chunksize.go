package evloop

import (
	"os"
	"strconv"
)

const envChunkSize = "EVLOOP_CHUNK_SIZE"

// defaultChunkSize is the refill-then-drain soft ceiling (§4.7), 4096 unless
// overridden by the environment per spec.md §6.
func defaultChunkSize() int {
	if v := os.Getenv(envChunkSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 4096
}

package sorting

import (
	"math"
	"runtime/debug"
)

// fallbackMemoryLimit is assumed when no limit can be detected
const fallbackMemoryLimit uint64 = 1 << 30

// DetectMemoryLimit returns the soft memory limit of the process (GOMEMLIMIT)
// when one is set, otherwise the total memory of the system, otherwise 1 GiB
func DetectMemoryLimit() uint64 {
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit != math.MaxInt64 {
		return uint64(limit)
	}
	if total := systemMemory(); total > 0 {
		return total
	}
	return fallbackMemoryLimit
}

package memory

import (
	"testing"

	"github.com/go-sif/etl/etltest"
)

func TestMemoryCache(t *testing.T) {
	etltest.CacheContract(t, New())
}

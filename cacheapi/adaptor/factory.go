package cachewrap

import (
	"fmt"
	"time"

	"github.com/xxxsen/mediaup/cacheapi"
)

const (
	KindLRU       = "lru"
	KindRistretto = "ristretto"
)

// New builds a string keyed cache holding at most size entries for ttl.
func New[V any](kind string, size int, ttl time.Duration) (cacheapi.ICache[string, V], error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid cache size:%d", size)
	}
	switch kind {
	case KindLRU, "":
		return NewLRU[string, V](size, ttl), nil
	case KindRistretto:
		return NewRistretto[string, V](size, ttl)
	default:
		return nil, fmt.Errorf("unknown cache kind:%s", kind)
	}
}

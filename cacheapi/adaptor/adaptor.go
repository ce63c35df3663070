package cachewrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	explru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/mediaup/cacheapi"
)

type ristrettoKey interface {
	uint64 | string | byte | int | int32 | uint32 | int64
}

// funcCache turns the lookup/store/evict calls of a concrete backend into a cacheapi.ICache.
type funcCache[K comparable, V any] struct {
	lookup func(k K) (V, bool)
	store  func(k K, v V)
	evict  func(k K)
}

func (f *funcCache[K, V]) Get(_ context.Context, k K) (V, error) {
	v, ok := f.lookup(k)
	if !ok {
		var zero V
		return zero, cacheapi.ErrCacheKeyNotExist
	}
	return v, nil
}

func (f *funcCache[K, V]) Set(_ context.Context, k K, v V) error {
	f.store(k, v)
	return nil
}

func (f *funcCache[K, V]) Del(_ context.Context, k K) error {
	f.evict(k)
	return nil
}

// NewLRU keeps at most size entries, each one expires ttl after it was stored.
func NewLRU[K comparable, V any](size int, ttl time.Duration) cacheapi.ICache[K, V] {
	c := explru.NewLRU[K, V](size, nil, ttl)
	return &funcCache[K, V]{
		lookup: c.Get,
		store: func(k K, v V) {
			_ = c.Add(k, v)
		},
		evict: func(k K) {
			_ = c.Remove(k)
		},
	}
}

// NewRistretto admits up to size entries of cost 1, ttl 0 keeps them until evicted.
func NewRistretto[K ristrettoKey, V any](size int, ttl time.Duration) (cacheapi.ICache[K, V], error) {
	c, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters:        int64(size) * 10,
		MaxCost:            int64(size),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache failed, err:%w", err)
	}
	return &funcCache[K, V]{
		lookup: c.Get,
		store: func(k K, v V) {
			_ = c.SetWithTTL(k, v, 1, ttl)
			// flush the write buffer so the next lookup sees it
			c.Wait()
		},
		evict: c.Del,
	}, nil
}

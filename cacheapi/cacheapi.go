package cacheapi

import (
	"context"
	"errors"
)

var (
	ErrCacheKeyNotExist = errors.New("cache key not exist")
)

// ICache is a keyed store whose entries may disappear at any time, a miss
// is reported as ErrCacheKeyNotExist.
type ICache[K comparable, V any] interface {
	Get(ctx context.Context, k K) (V, error)
	Set(ctx context.Context, k K, v V) error
	Del(ctx context.Context, k K) error
}

// LoadCacheCallbackFunc fetches a missed key. The returned flag tells whether
// the value may be written back, values that still change should not be.
type LoadCacheCallbackFunc[K comparable, V any] func(ctx context.Context, k K) (V, bool, error)

// Load reads k from c and falls back to cb on a miss. Other cache errors are returned as is.
func Load[K comparable, V any](ctx context.Context, c ICache[K, V], k K, cb LoadCacheCallbackFunc[K, V]) (V, error) {
	var defaultV V
	v, err := c.Get(ctx, k)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrCacheKeyNotExist) {
		return defaultV, err
	}
	v, cacheable, err := cb(ctx, k)
	if err != nil {
		return defaultV, err
	}
	if cacheable {
		_ = c.Set(ctx, k, v)
	}
	return v, nil
}

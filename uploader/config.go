package uploader

import (
	"context"
	"time"
)

const (
	DefaultChunkSize      = 5 * 1024 * 1024
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 2 * time.Second
	defaultCleanupTimeout = 30 * time.Second
)

type sleepFunc func(ctx context.Context, d time.Duration) error

type config struct {
	Transport      ITransport
	Cleaner        ICleaner
	ChunkSize      int64
	MaxRetries     int
	RetryDelay     time.Duration
	CleanupTimeout time.Duration
	StateHook      StateHook
	sleep          sleepFunc
}

type Option func(*config)

func WithTransport(t ITransport) Option {
	return func(c *config) {
		c.Transport = t
	}
}

func WithCleaner(cl ICleaner) Option {
	return func(c *config) {
		c.Cleaner = cl
	}
}

func WithChunkSize(sz int64) Option {
	return func(c *config) {
		c.ChunkSize = sz
	}
}

// WithMaxRetries sets the total number of attempts per chunk.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		c.MaxRetries = n
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *config) {
		c.RetryDelay = d
	}
}

func WithCleanupTimeout(d time.Duration) Option {
	return func(c *config) {
		c.CleanupTimeout = d
	}
}

func WithStateHook(h StateHook) Option {
	return func(c *config) {
		c.StateHook = h
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package negotiate

import (
	"net/http"
	"time"

	"github.com/xxxsen/mediaup/cacheapi"
)

type config struct {
	Endpoint     string
	Token        string
	HTTPClient   *http.Client
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	StatusCache  cacheapi.ICache[string, *ProcessingStatus]
}

type Option func(*config)

// WithEndpoint sets the base url of the backend, e.g. https://api.example.com
func WithEndpoint(e string) Option {
	return func(c *config) {
		c.Endpoint = e
	}
}

func WithToken(t string) Option {
	return func(c *config) {
		c.Token = t
	}
}

func WithHTTPClient(cli *http.Client) Option {
	return func(c *config) {
		c.HTTPClient = cli
	}
}

// WithRetry controls the retries of idempotent calls (status and delete).
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *config) {
		c.RetryMax = retryMax
		c.RetryWaitMin = waitMin
		c.RetryWaitMax = waitMax
	}
}

func WithStatusCache(cc cacheapi.ICache[string, *ProcessingStatus]) Option {
	return func(c *config) {
		c.StatusCache = cc
	}
}

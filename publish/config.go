package publish

import (
	"time"

	"github.com/xxxsen/mediaup/negotiate"
	"github.com/xxxsen/mediaup/uploader"
)

type config struct {
	Thread       int
	Client       negotiate.IClient
	Uploader     *uploader.Uploader
	Wait         bool
	PollInterval time.Duration
}

type Option func(*config)

func WithClient(cli negotiate.IClient) Option {
	return func(c *config) {
		c.Client = cli
	}
}

func WithUploader(u *uploader.Uploader) Option {
	return func(c *config) {
		c.Uploader = u
	}
}

func WithThread(t int) Option {
	return func(c *config) {
		c.Thread = t
	}
}

// WithWaitReady makes every publish poll the video until processing ends.
func WithWaitReady(wait bool, interval time.Duration) Option {
	return func(c *config) {
		c.Wait = wait
		c.PollInterval = interval
	}
}

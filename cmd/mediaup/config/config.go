package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/dustin/go-humanize"
)

const envPrefix = "MEDIAUP_"

// levels accepted by logger.Init, anything else makes it panic.
var supportedLogLevels = map[string]string{
	"debug":   "debug",
	"info":    "info",
	"warn":    "warn",
	"warning": "warn",
	"error":   "warn",
	"fatal":   "fatal",
	"panic":   "panic",
}

type CacheConfig struct {
	Kind string `json:"kind" env:"KIND"`
	Size int    `json:"size" env:"SIZE"`
	TTL  int64  `json:"ttl" env:"TTL"` // seconds
}

type Config struct {
	Endpoint     string      `json:"endpoint" env:"ENDPOINT"`
	Token        string      `json:"token" env:"TOKEN"`
	Thread       int         `json:"thread" env:"THREAD"`
	LogLevel     string      `json:"log_level" env:"LOG_LEVEL"`
	Timeout      int64       `json:"timeout" env:"TIMEOUT"` // seconds, per chunk attempt
	ChunkSize    string      `json:"chunk_size" env:"CHUNK_SIZE"`
	MaxRetries   int         `json:"max_retries" env:"MAX_RETRIES"`
	RetryDelay   int64       `json:"retry_delay" env:"RETRY_DELAY"`     // milliseconds
	PollInterval int64       `json:"poll_interval" env:"POLL_INTERVAL"` // seconds
	StatusCache  CacheConfig `json:"status_cache" envPrefix:"STATUS_CACHE_"`
}

func Default() *Config {
	return &Config{
		Thread:       2,
		LogLevel:     "info",
		Timeout:      600,
		ChunkSize:    "5MiB",
		MaxRetries:   3,
		RetryDelay:   2000,
		PollInterval: 5,
		StatusCache: CacheConfig{
			Kind: "lru",
			Size: 256,
			TTL:  600,
		},
	}
}

func Parse(f string) (*Config, error) {
	raw, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("read file:%w", err)
	}
	c := Default()
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("unmarshal file:%w", err)
	}
	return c, nil
}

// ApplyEnv overrides c with the MEDIAUP_ prefixed variables that are set.
func ApplyEnv(c *Config) error {
	if err := env.Parse(c, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parse env:%w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.Endpoint) == 0 {
		return fmt.Errorf("no endpoint found")
	}
	if _, err := c.ChunkSizeBytes(); err != nil {
		return err
	}
	if _, err := c.LoggerLevel(); err != nil {
		return err
	}
	if c.Thread <= 0 {
		return fmt.Errorf("invalid thread:%d", c.Thread)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("invalid max retries:%d", c.MaxRetries)
	}
	return nil
}

func (c *Config) ChunkSizeBytes() (int64, error) {
	sz, err := humanize.ParseBytes(c.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("parse chunk size:%s failed, err:%w", c.ChunkSize, err)
	}
	if sz == 0 {
		return 0, fmt.Errorf("zero chunk size")
	}
	if sz > math.MaxInt64 {
		return 0, fmt.Errorf("chunk size:%s too large", c.ChunkSize)
	}
	return int64(sz), nil
}

// LoggerLevel maps LogLevel onto a level logger.Init understands.
// error has no dedicated level there and is lowered to warn.
func (c *Config) LoggerLevel() (string, error) {
	lv := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if len(lv) == 0 {
		return "info", nil
	}
	mapped, ok := supportedLogLevels[lv]
	if !ok {
		return "", fmt.Errorf("unsupported log level:%s", c.LogLevel)
	}
	return mapped, nil
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Millisecond
}

func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c *Config) StatusCacheTTL() time.Duration {
	return time.Duration(c.StatusCache.TTL) * time.Second
}

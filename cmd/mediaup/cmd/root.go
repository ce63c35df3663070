package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	cachewrap "github.com/xxxsen/mediaup/cacheapi/adaptor"
	"github.com/xxxsen/mediaup/cmd/mediaup/config"
	"github.com/xxxsen/mediaup/negotiate"
	"github.com/xxxsen/mediaup/uploader"
	"go.uber.org/zap"
)

const (
	defaultConfigFileEnv = "MEDIAUP_CONFIG"
)

var cmds []CreateFunc

type Context struct {
	Config   *config.Config
	Client   negotiate.IClient
	Uploader *uploader.Uploader
}

type CreateFunc func(ctx *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func loadConfig(cfgs []string) (*config.Config, error) {
	var c *config.Config
	for _, cfg := range cfgs {
		if len(cfg) == 0 {
			continue
		}
		pc, err := config.Parse(cfg)
		if err != nil {
			continue
		}
		c = pc
		break
	}
	if c == nil {
		c = config.Default()
	}
	if err := config.ApplyEnv(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("no valid config found, err:%w", err)
	}
	return c, nil
}

func initContext(ctx *Context, cfgs []string) error {
	c, err := loadConfig(cfgs)
	if err != nil {
		return err
	}
	ctx.Config = c
	level, err := c.LoggerLevel()
	if err != nil {
		return err
	}
	lg := logger.Init("", level, 0, 0, 0, true)
	statusCache, err := cachewrap.New[*negotiate.ProcessingStatus](c.StatusCache.Kind, c.StatusCache.Size, c.StatusCacheTTL())
	if err != nil {
		return err
	}
	cli, err := negotiate.New(
		negotiate.WithEndpoint(c.Endpoint),
		negotiate.WithToken(c.Token),
		negotiate.WithStatusCache(statusCache),
	)
	if err != nil {
		return err
	}
	ctx.Client = cli
	chunkSize, _ := c.ChunkSizeBytes()
	ctx.Uploader = uploader.New(
		uploader.WithTransport(uploader.NewHTTPTransport(uploader.WithTimeout(c.TimeoutDuration()))),
		uploader.WithCleaner(cli),
		uploader.WithChunkSize(chunkSize),
		uploader.WithMaxRetries(c.MaxRetries),
		uploader.WithRetryDelay(c.RetryDelayDuration()),
	)
	lg.Debug("init context succ", zap.String("endpoint", c.Endpoint), zap.String("chunk_size", c.ChunkSize),
		zap.Int("max_retries", c.MaxRetries), zap.Int("thread", c.Thread), zap.String("status_cache", c.StatusCache.Kind))
	return nil
}

func NewRoot() *cobra.Command {
	var configFile string
	ctx := &Context{}
	var rootCmd = &cobra.Command{
		Use:           "mediaup",
		Short:         "Upload course videos to the media backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		envConfigFile, _ := os.LookupEnv(defaultConfigFileEnv)
		return initContext(ctx, []string{configFile, envConfigFile, "/etc/mediaup/mediaup_config.json", "C:/mediaup/mediaup_config.json"})
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	return rootCmd
}

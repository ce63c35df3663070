package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/mediaup/negotiate"
	"go.uber.org/zap"
)

type statusArgs struct {
	id   string
	wait bool
}

func NewStatusCmd(c *Context) *cobra.Command {
	args := &statusArgs{}
	subc := &cobra.Command{
		Use:   "status",
		Short: "Show the processing status of a video",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return onRunStatus(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.id, "id", "i", "", "video id")
	subc.PersistentFlags().BoolVar(&args.wait, "wait", false, "poll until processing ends")
	return subc
}

func onRunStatus(ctx context.Context, c *Context, args *statusArgs) error {
	if len(args.id) == 0 {
		return fmt.Errorf("no video id found")
	}
	var st *negotiate.ProcessingStatus
	var err error
	if args.wait {
		st, err = negotiate.WaitReady(ctx, c.Client, args.id, c.Config.PollIntervalDuration())
	} else {
		st, err = c.Client.GetStatus(ctx, args.id)
	}
	if st != nil {
		logutil.GetLogger(ctx).Info("video status", zap.String("video_id", args.id), zap.String("state", st.State.String()),
			zap.Int("encode_progress", st.EncodeProgress), zap.Int64("length", st.Length))
	}
	if err != nil {
		return fmt.Errorf("read video status failed, err:%w", err)
	}
	return nil
}

func init() {
	register(NewStatusCmd)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type deleteArgs struct {
	id string
}

func NewDeleteCmd(c *Context) *cobra.Command {
	args := &deleteArgs{}
	subc := &cobra.Command{
		Use:   "delete",
		Short: "Delete an abandoned upload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunDelete(cmd.Context(), c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.id, "id", "i", "", "video id")
	return subc
}

func onRunDelete(ctx context.Context, c *Context, args *deleteArgs) error {
	if len(args.id) == 0 {
		return fmt.Errorf("no video id found")
	}
	if err := c.Client.DeleteUpload(ctx, args.id); err != nil {
		return fmt.Errorf("delete video failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("delete video succ", zap.String("video_id", args.id))
	return nil
}

func init() {
	register(NewDeleteCmd)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/mediaup/publish"
	"github.com/xxxsen/mediaup/uploader"
	"github.com/xxxsen/mediaup/utils"
	"go.uber.org/zap"
)

const defaultProgressLogStep = 10

type uploadArgs struct {
	files  []string
	title  string
	wait   bool
	report string
}

func NewUploadCmd(c *Context) *cobra.Command {
	args := &uploadArgs{}
	subc := &cobra.Command{
		Use:   "upload",
		Short: "Upload video files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return onRunUpload(ctx, c, args, cmd.ErrOrStderr())
		},
	}
	subc.PersistentFlags().StringSliceVarP(&args.files, "file", "f", nil, "local file to upload, repeatable")
	subc.PersistentFlags().StringVar(&args.title, "title", "", "video title, only used with a single file")
	subc.PersistentFlags().BoolVar(&args.wait, "wait", false, "wait until the backend finished processing")
	subc.PersistentFlags().StringVar(&args.report, "report", "", "write the results as json to this file")
	return subc
}

// throttleProgress forwards a value only when it enters a new step bucket.
func throttleProgress(step int, fn uploader.ProgressFunc) uploader.ProgressFunc {
	last := -1
	return func(pct int) {
		bucket := pct / step
		if bucket == last {
			return
		}
		last = bucket
		fn(pct)
	}
}

func newLogProgress(ctx context.Context) publish.ProgressFactory {
	return func(file string) uploader.ProgressFunc {
		name := filepath.Base(file)
		return throttleProgress(defaultProgressLogStep, func(pct int) {
			logutil.GetLogger(ctx).Info("upload progress", zap.String("file", name), zap.Int("percent", pct))
		})
	}
}

func uploadSingle(ctx context.Context, pub *publish.Publisher, file string, title string) ([]*publish.Result, error) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(filepath.Base(file)),
		progressbar.OptionClearOnFinish(),
	)
	rs, err := pub.PublishFile(ctx, file, title, func(pct int) {
		_ = bar.Set(pct)
	})
	_ = bar.Finish()
	return []*publish.Result{rs}, err
}

// describeFailures tells the user, per failed file, what went wrong with its transfer.
func describeFailures(w io.Writer, rs []*publish.Result) {
	for _, r := range rs {
		var upErr *uploader.UploadError
		if r == nil || !errors.As(r.Err(), &upErr) {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", filepath.Base(r.File), upErr.Kind.Describe())
	}
}

func onRunUpload(ctx context.Context, c *Context, args *uploadArgs, w io.Writer) error {
	if len(args.files) == 0 {
		return fmt.Errorf("no upload file found")
	}
	pub, err := publish.New(
		publish.WithClient(c.Client),
		publish.WithUploader(c.Uploader),
		publish.WithThread(c.Config.Thread),
		publish.WithWaitReady(args.wait, c.Config.PollIntervalDuration()),
	)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	var rs []*publish.Result
	var runErr error
	if len(args.files) == 1 {
		rs, runErr = uploadSingle(ctx, pub, args.files[0], args.title)
	} else {
		if len(args.title) > 0 {
			logger.Warn("title is ignored when uploading several files", zap.String("title", args.title))
		}
		rs, runErr = pub.PublishFiles(ctx, args.files, newLogProgress(ctx))
	}
	for _, r := range rs {
		logger.Info("upload result", zap.String("file", r.File), zap.String("video_id", r.ResourceID),
			zap.String("state", r.State), zap.String("fingerprint", r.Fingerprint), zap.String("cost", r.Cost),
			zap.String("err", r.Error))
	}
	if len(args.report) > 0 {
		if err := utils.WriteJSONReport(args.report, rs); err != nil {
			logger.Error("write upload report failed", zap.Error(err), zap.String("report", args.report))
		}
	}
	if runErr != nil {
		describeFailures(w, rs)
		return fmt.Errorf("upload file failed, err:%w", runErr)
	}
	return nil
}

func init() {
	register(NewUploadCmd)
}

package negotiate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultPollInterval = 5 * time.Second

var ErrProcessingFailed = errors.New("video processing failed")

// WaitReady polls the status of resourceID until it is terminal. A video that
// ends in a failed state is returned together with ErrProcessingFailed.
func WaitReady(ctx context.Context, cli IClient, resourceID string, interval time.Duration) (*ProcessingStatus, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	logger := logutil.GetLogger(ctx).With(zap.String("video_id", resourceID))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := cli.GetStatus(ctx, resourceID)
		if err != nil {
			return nil, fmt.Errorf("get video status failed, err:%w", err)
		}
		if st.State.IsTerminal() {
			if st.State.IsFailed() {
				return st, fmt.Errorf("video end with state:%s, err:%w", st.State, ErrProcessingFailed)
			}
			logger.Info("video is ready", zap.Int64("length", st.Length))
			return st, nil
		}
		logger.Debug("video still processing", zap.String("state", st.State.String()), zap.Int("encode_progress", st.EncodeProgress))
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

package uploader

import (
	"context"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ICleaner releases the remote resource of an upload that failed for good.
type ICleaner interface {
	Cleanup(ctx context.Context, resourceID string) error
}

type CleanerFunc func(ctx context.Context, resourceID string) error

func (f CleanerFunc) Cleanup(ctx context.Context, resourceID string) error {
	return f(ctx, resourceID)
}

type Uploader struct {
	c *config
}

func New(opts ...Option) *Uploader {
	c := &config{
		ChunkSize:      DefaultChunkSize,
		MaxRetries:     DefaultMaxRetries,
		RetryDelay:     DefaultRetryDelay,
		CleanupTimeout: defaultCleanupTimeout,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Transport == nil {
		c.Transport = NewHTTPTransport()
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	return &Uploader{c: c}
}

func (u *Uploader) UploadFile(ctx context.Context, path string, cred *Credential, fn ProgressFunc) error {
	src, err := OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()
	return u.Upload(ctx, src, cred, fn)
}

// Upload sends src to cred chunk by chunk, strictly in order. A chunk that
// still fails after MaxRetries attempts ends the upload, the remote resource is
// then released on a best-effort basis and the last attempt's error is returned.
func (u *Uploader) Upload(ctx context.Context, src ISource, cred *Credential, fn ProgressFunc) error {
	if cred == nil || len(cred.UploadURL) == 0 {
		return ErrNoUploadURL
	}
	if src == nil || src.Size() <= 0 {
		return ErrEmptySource
	}
	ss := &uploadSession{
		id:    uuid.NewString(),
		src:   src,
		cred:  cred,
		state: StateIdle,
		hook:  u.c.StateHook,
	}
	ss.logger = logutil.GetLogger(ctx).With(zap.String("upload_id", ss.id), zap.String("name", src.Name()))
	ss.transition(StateSplitting, -1)
	ss.chunks = SplitChunks(src.Size(), u.c.ChunkSize)
	ss.progress = newProgressTracker(ss.total(), fn)
	ss.logger.Debug("start upload file", zap.String("size", humanize.IBytes(uint64(src.Size()))),
		zap.Int64("chunk_size", u.c.ChunkSize), zap.Int("chunk_cnt", ss.total()))

	start := time.Now()
	for _, chk := range ss.chunks {
		if err := u.uploadChunkWithRetry(ctx, ss, chk); err != nil {
			ss.transition(StateFailed, chk.Index)
			ss.logger.Error("upload file failed", zap.Error(err), zap.Int("chunk", chk.Index))
			u.cleanup(ctx, ss)
			return err
		}
		ss.progress.onChunkDone()
		ss.transition(StateChunkDone, chk.Index)
	}
	ss.transition(StateCompleted, -1)
	cost := time.Since(start)
	ss.logger.Info("upload file succ", zap.Duration("cost", cost), zap.String("speed", formatSpeed(src.Size(), cost)))
	return nil
}

func (u *Uploader) uploadChunkWithRetry(ctx context.Context, ss *uploadSession, chk Chunk) error {
	var lastErr error
	attempt := 0
	for attempt < u.c.MaxRetries {
		if attempt > 0 {
			ss.transition(StateRetryingChunk, chk.Index)
			if err := u.c.sleep(ctx, u.c.RetryDelay); err != nil {
				return &UploadError{Kind: Classify(err), Chunk: chk.Index, Attempts: attempt, Err: lastErr}
			}
		}
		attempt++
		ss.transition(StateTransmittingChunk, chk.Index)
		err := u.sendChunk(ctx, ss, chk)
		if err == nil {
			return nil
		}
		lastErr = err
		ss.logger.Error("upload chunk attempt failed", zap.Error(err), zap.Int("chunk", chk.Index),
			zap.Int("attempt", attempt), zap.Int("max_attempt", u.c.MaxRetries), zap.String("kind", Classify(err).String()))
	}
	return &UploadError{Kind: Classify(lastErr), Chunk: chk.Index, Attempts: attempt, Err: lastErr}
}

func (u *Uploader) sendChunk(ctx context.Context, ss *uploadSession, chk Chunk) error {
	header := ss.cred.cloneHeaders(1)
	if ss.total() > 1 {
		header["Content-Range"] = chk.ContentRange(ss.src.Size())
	}
	size := chk.Size()
	start := time.Now()
	if err := u.c.Transport.Send(ctx, &ChunkRequest{
		URL:    ss.cred.UploadURL,
		Method: ss.cred.method(),
		Header: header,
		Body:   io.NewSectionReader(ss.src, chk.Start, size),
		Size:   size,
		OnProgress: func(sent int64) {
			ss.progress.onChunkBytes(sent, size)
		},
	}); err != nil {
		return err
	}
	cost := time.Since(start)
	ss.logger.Debug("chunk upload finish", zap.Int("chunk", chk.Index), zap.Duration("cost", cost),
		zap.String("speed", formatSpeed(size, cost)))
	return nil
}

func (u *Uploader) cleanup(ctx context.Context, ss *uploadSession) {
	logger := ss.logger
	if u.c.Cleaner == nil {
		logger.Debug("no cleaner configured, skip remote cleanup")
		return
	}
	rid, err := ResourceIDFromURL(ss.cred.UploadURL)
	if err != nil {
		logger.Error("read resource id for cleanup failed", zap.Error(err))
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.c.CleanupTimeout)
	defer cancel()
	if err := u.c.Cleaner.Cleanup(cctx, rid); err != nil {
		logger.Error("cleanup remote resource failed", zap.Error(err), zap.String("resource_id", rid))
		return
	}
	logger.Info("cleanup remote resource succ", zap.String("resource_id", rid))
}

func formatSpeed(size int64, cost time.Duration) string {
	ms := int64(cost / time.Millisecond)
	if ms <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(float64(size)*1000/float64(ms))) + "/s"
}

package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/mediaup/negotiate"
	"github.com/xxxsen/mediaup/uploader"
	"github.com/xxxsen/mediaup/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result describes the outcome of publishing one local file.
type Result struct {
	File        string `json:"file"`
	Title       string `json:"title"`
	ResourceID  string `json:"video_id,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint,omitempty"`
	State       string `json:"state,omitempty"`
	Cost        string `json:"cost"`
	Error       string `json:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`

	err error
}

// Err returns the error that failed this file, nil on success.
func (r *Result) Err() error {
	return r.err
}

// ProgressFactory hands out the progress sink of one file.
type ProgressFactory func(file string) uploader.ProgressFunc

type Publisher struct {
	c *config
}

func New(opts ...Option) (*Publisher, error) {
	c := &config{
		Thread: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Client == nil {
		return nil, fmt.Errorf("no negotiate client found")
	}
	if c.Uploader == nil {
		c.Uploader = uploader.New(uploader.WithCleaner(c.Client))
	}
	if c.Thread <= 0 {
		c.Thread = 1
	}
	return &Publisher{c: c}, nil
}

func defaultTitle(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// PublishFile negotiates a video for path, uploads the file into it and, when
// configured, waits until the backend finished processing. The returned
// result is never nil.
func (p *Publisher) PublishFile(ctx context.Context, path string, title string, fn uploader.ProgressFunc) (*Result, error) {
	start := time.Now()
	rs := &Result{File: path, Title: title}
	err := p.publishFile(ctx, rs, fn)
	rs.Cost = time.Since(start).Truncate(time.Millisecond).String()
	if err != nil {
		rs.Error = err.Error()
		rs.err = err
		return rs, err
	}
	return rs, nil
}

func (p *Publisher) publishFile(ctx context.Context, rs *Result, fn uploader.ProgressFunc) error {
	path := rs.File
	src, err := uploader.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()
	rs.Size = src.Size()
	if rs.Size <= 0 {
		return uploader.ErrEmptySource
	}
	if len(rs.Title) == 0 {
		rs.Title = defaultTitle(src.Name())
	}
	logger := logutil.GetLogger(ctx).With(zap.String("file", path))
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect mime type failed, err:%w", err)
	}
	rs.ContentType = mtype.String()
	if !strings.HasPrefix(rs.ContentType, "video/") {
		logger.Warn("file does not look like a video, upload anyway", zap.String("content_type", rs.ContentType))
	}
	rs.Fingerprint, err = utils.FingerprintFile(path)
	if err != nil {
		return err
	}
	ss, err := p.c.Client.CreateUpload(ctx, &negotiate.CreateUploadRequest{
		Title:       rs.Title,
		FileName:    src.Name(),
		FileSize:    rs.Size,
		ContentType: rs.ContentType,
	})
	if err != nil {
		return fmt.Errorf("create upload failed, err:%w", err)
	}
	rs.ResourceID = ss.ResourceID
	logger.Debug("upload credential created", zap.String("video_id", ss.ResourceID),
		zap.String("size", humanize.IBytes(uint64(rs.Size))), zap.String("content_type", rs.ContentType))
	if err := p.c.Uploader.Upload(ctx, src, ss.Credential(), fn); err != nil {
		rs.ErrorKind = uploader.Classify(err).String()
		return err
	}
	rs.State = negotiate.StateUploaded.String()
	if !p.c.Wait {
		return nil
	}
	st, err := negotiate.WaitReady(ctx, p.c.Client, ss.ResourceID, p.c.PollInterval)
	if st != nil {
		rs.State = st.State.String()
	}
	if err != nil {
		return err
	}
	return nil
}

// PublishFiles publishes files with at most Thread uploads at once. A failed
// file does not stop the others, its error is kept in its result and joined
// into the returned error.
func (p *Publisher) PublishFiles(ctx context.Context, files []string, pf ProgressFactory) ([]*Result, error) {
	rs := make([]*Result, len(files))
	var eg errgroup.Group
	eg.SetLimit(p.c.Thread)
	for i, file := range files {
		eg.Go(func() error {
			var fn uploader.ProgressFunc
			if pf != nil {
				fn = pf(file)
			}
			r, err := p.PublishFile(ctx, file, "", fn)
			if err != nil {
				logutil.GetLogger(ctx).Error("publish file failed", zap.Error(err), zap.String("file", file))
			}
			rs[i] = r
			return nil
		})
	}
	_ = eg.Wait()
	errs := make([]error, 0, len(rs))
	for _, r := range rs {
		if r.Err() != nil {
			errs = append(errs, fmt.Errorf("file:%s, err:%w", r.File, r.Err()))
		}
	}
	if len(errs) > 0 {
		return rs, fmt.Errorf("publish files failed, failed:%d, total:%d, err:%w", len(errs), len(files), errors.Join(errs...))
	}
	return rs, nil
}

package negotiate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/mediaup/cacheapi"
	cachewrap "github.com/xxxsen/mediaup/cacheapi/adaptor"
	"github.com/xxxsen/mediaup/uploader"
	"go.uber.org/zap"
)

const (
	apiCreateUpload = "/api/videos/upload-url"
	apiVideo        = "/api/videos/%s"
	apiVideoStatus  = "/api/videos/%s/status"
)

const (
	defaultRetryMax            = 3
	defaultRetryWaitMin        = 500 * time.Millisecond
	defaultRetryWaitMax        = 5 * time.Second
	defaultStatusCacheSize     = 256
	defaultStatusCacheTTL      = 10 * time.Minute
	defaultMaxErrorBodyLength  = 4 * 1024
	defaultMaxResponseBodySize = 1024 * 1024
)

var (
	defaultHttpClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			IdleConnTimeout:     20 * time.Second,
			MaxIdleConns:        5,
			MaxIdleConnsPerHost: 1,
		},
	}
)

// APIError is a non-2xx answer of the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status code not ok, code:%d, body:%s", e.StatusCode, e.Body)
}

var _ uploader.ICleaner = (*defaultClient)(nil)

type defaultClient struct {
	c  *config
	rc *retryablehttp.Client
}

func New(opts ...Option) (IClient, error) {
	c := &config{
		RetryMax:     defaultRetryMax,
		RetryWaitMin: defaultRetryWaitMin,
		RetryWaitMax: defaultRetryWaitMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.Endpoint) == 0 {
		return nil, fmt.Errorf("no endpoint found")
	}
	if _, err := url.Parse(c.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint:%s, err:%w", c.Endpoint, err)
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	if c.HTTPClient == nil {
		c.HTTPClient = defaultHttpClient
	}
	if c.StatusCache == nil {
		c.StatusCache = cachewrap.NewLRU[string, *ProcessingStatus](defaultStatusCacheSize, defaultStatusCacheTTL)
	}
	rc := retryablehttp.NewClient()
	rc.HTTPClient = c.HTTPClient
	rc.RetryMax = c.RetryMax
	rc.RetryWaitMin = c.RetryWaitMin
	rc.RetryWaitMax = c.RetryWaitMax
	rc.Logger = newZapLeveledLogger(logutil.GetLogger(context.Background()))
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &defaultClient{c: c, rc: rc}, nil
}

func (d *defaultClient) buildUrl(api string, args ...interface{}) string {
	for i, arg := range args {
		if s, ok := arg.(string); ok {
			args[i] = url.PathEscape(s)
		}
	}
	return d.c.Endpoint + fmt.Sprintf(api, args...)
}

func (d *defaultClient) applyAuth(req *http.Request) {
	if len(d.c.Token) == 0 {
		return
	}
	req.Header.Set("Authorization", "Bearer "+d.c.Token)
}

func (d *defaultClient) decodeResponse(rsp *http.Response, out interface{}) error {
	if rsp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(rsp.Body, defaultMaxErrorBodyLength))
		return &APIError{StatusCode: rsp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(rsp.Body, defaultMaxResponseBodySize))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(rsp.Body, defaultMaxResponseBodySize)).Decode(out); err != nil {
		return fmt.Errorf("decode response failed, err:%w", err)
	}
	return nil
}

// CreateUpload is sent once, a retried create could leave a second video behind.
func (d *defaultClient) CreateUpload(ctx context.Context, in *CreateUploadRequest) (*UploadSession, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode create upload request failed, err:%w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.buildUrl(apiCreateUpload), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	d.applyAuth(req)
	req.Header.Set("Content-Type", "application/json")
	rsp, err := d.c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call create upload failed, err:%w", err)
	}
	defer rsp.Body.Close()
	ss := &UploadSession{}
	if err := d.decodeResponse(rsp, ss); err != nil {
		logutil.GetLogger(ctx).Error("create upload failed", zap.Error(err), zap.String("file", in.FileName))
		return nil, err
	}
	if len(ss.UploadURL) == 0 {
		return nil, fmt.Errorf("create upload returns no credential, err:%w", uploader.ErrNoUploadURL)
	}
	if len(ss.ResourceID) == 0 {
		if rid, err := uploader.ResourceIDFromURL(ss.UploadURL); err == nil {
			ss.ResourceID = rid
		}
	}
	return ss, nil
}

func (d *defaultClient) doIdempotent(ctx context.Context, method string, u string) (*http.Response, error) {
	req, err := retryablehttp.NewRequest(method, u, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	d.applyAuth(req.Request)
	rsp, err := d.rc.Do(req)
	if err != nil {
		if rsp != nil {
			_ = rsp.Body.Close()
		}
		return nil, err
	}
	return rsp, nil
}

// DeleteUpload treats an already missing video as deleted.
func (d *defaultClient) DeleteUpload(ctx context.Context, resourceID string) error {
	if len(resourceID) == 0 {
		return fmt.Errorf("empty resource id")
	}
	rsp, err := d.doIdempotent(ctx, http.MethodDelete, d.buildUrl(apiVideo, resourceID))
	if err != nil {
		return fmt.Errorf("call delete upload failed, err:%w", err)
	}
	defer rsp.Body.Close()
	_ = d.c.StatusCache.Del(ctx, resourceID)
	if rsp.StatusCode == http.StatusNotFound {
		logutil.GetLogger(ctx).Debug("video already removed", zap.String("video_id", resourceID))
		return nil
	}
	return d.decodeResponse(rsp, nil)
}

func (d *defaultClient) Cleanup(ctx context.Context, resourceID string) error {
	return d.DeleteUpload(ctx, resourceID)
}

// GetStatus caches a status only once it is terminal. Callers get their own
// copy, the cached entry is never handed out.
func (d *defaultClient) GetStatus(ctx context.Context, resourceID string) (*ProcessingStatus, error) {
	if len(resourceID) == 0 {
		return nil, fmt.Errorf("empty resource id")
	}
	st, err := cacheapi.Load[string, *ProcessingStatus](ctx, d.c.StatusCache, resourceID, d.fetchStatus)
	if err != nil {
		return nil, err
	}
	cp := *st
	return &cp, nil
}

func (d *defaultClient) fetchStatus(ctx context.Context, resourceID string) (*ProcessingStatus, bool, error) {
	rsp, err := d.doIdempotent(ctx, http.MethodGet, d.buildUrl(apiVideoStatus, resourceID))
	if err != nil {
		return nil, false, fmt.Errorf("call get status failed, err:%w", err)
	}
	defer rsp.Body.Close()
	st := &ProcessingStatus{}
	if err := d.decodeResponse(rsp, st); err != nil {
		return nil, false, err
	}
	if len(st.ResourceID) == 0 {
		st.ResourceID = resourceID
	}
	return st, st.State.IsTerminal(), nil
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

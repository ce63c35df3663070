package uploader

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	defaultTransportTimeout   = 600 * time.Second
	defaultMaxErrorBodyLength = 4 * 1024
	defaultMaxDrainBodyLength = 64 * 1024
)

// ChunkRequest is one transmission attempt of one chunk.
type ChunkRequest struct {
	URL    string
	Method string
	Header map[string]string
	Body   io.Reader
	Size   int64
	// OnProgress receives the bytes of Body consumed so far by this attempt.
	OnProgress func(sent int64)
}

// ITransport sends a chunk and reports whether the endpoint accepted it.
// Implementations must not call OnProgress after Send returned.
type ITransport interface {
	Send(ctx context.Context, req *ChunkRequest) error
}

type transportConfig struct {
	client  *http.Client
	timeout time.Duration
}

type TransportOption func(c *transportConfig)

func WithHTTPClient(cli *http.Client) TransportOption {
	return func(c *transportConfig) {
		c.client = cli
	}
}

// WithTimeout bounds a single attempt, an expired attempt fails as a timeout.
func WithTimeout(t time.Duration) TransportOption {
	return func(c *transportConfig) {
		c.timeout = t
	}
}

type httpTransport struct {
	client *http.Client
}

func NewHTTPTransport(opts ...TransportOption) ITransport {
	c := &transportConfig{
		timeout: defaultTransportTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	cli := c.client
	if cli == nil {
		cli = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 20 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				IdleConnTimeout:     20 * time.Second,
				MaxIdleConns:        5,
				MaxIdleConnsPerHost: 1,
			},
		}
	}
	return &httpTransport{client: cli}
}

func (t *httpTransport) Send(ctx context.Context, creq *ChunkRequest) error {
	body := newProgressReader(creq.Body, creq.OnProgress)
	defer body.fence()
	req, err := http.NewRequestWithContext(ctx, creq.Method, creq.URL, body)
	if err != nil {
		return fmt.Errorf("create http request failed, err:%w", err)
	}
	req.ContentLength = creq.Size
	for k, v := range creq.Header {
		req.Header.Set(k, v)
	}
	rsp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do http request failed, err:%w", err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(rsp.Body, defaultMaxErrorBodyLength))
		return &StatusError{StatusCode: rsp.StatusCode, Body: string(raw)}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rsp.Body, defaultMaxDrainBodyLength))
	return nil
}

// progressReader counts the bytes pulled by the http client. Once fenced it
// neither reads nor reports, the client may still poke it from its write loop.
type progressReader struct {
	mu     sync.Mutex
	r      io.Reader
	fn     func(sent int64)
	sent   int64
	fenced bool
}

func newProgressReader(r io.Reader, fn func(sent int64)) *progressReader {
	return &progressReader{r: r, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fenced {
		return 0, ErrAborted
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent)
		}
	}
	return n, err
}

func (p *progressReader) fence() {
	p.mu.Lock()
	p.fenced = true
	p.mu.Unlock()
}

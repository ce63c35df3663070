package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const mib = 1024 * 1024

type sentChunk struct {
	method string
	url    string
	header map[string]string
	body   []byte
}

type fakeTransport struct {
	mu     sync.Mutex
	sent   []*sentChunk
	onSend func(idx int, c *sentChunk) error
}

func (f *fakeTransport) Send(ctx context.Context, req *ChunkRequest) error {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if req.OnProgress != nil {
		step := int64(len(raw)) / 4
		if step > 0 {
			for n := step; n < int64(len(raw)); n += step {
				req.OnProgress(n)
			}
		}
		req.OnProgress(int64(len(raw)))
	}
	c := &sentChunk{method: req.Method, url: req.URL, header: req.Header, body: raw}
	f.mu.Lock()
	idx := len(f.sent)
	f.sent = append(f.sent, c)
	f.mu.Unlock()
	if f.onSend != nil {
		return f.onSend(idx, c)
	}
	return nil
}

func (f *fakeTransport) chunkStart(c *sentChunk) int64 {
	var start, end, total int64
	_, _ = fmt.Sscanf(c.header["Content-Range"], "bytes %d-%d/%d", &start, &end, &total)
	return start
}

type fakeSleeper struct {
	delays []time.Duration
	err    error
}

func (s *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

type fakeCleaner struct {
	ids []string
	err error
}

func (c *fakeCleaner) Cleanup(ctx context.Context, id string) error {
	c.ids = append(c.ids, id)
	return c.err
}

func makeData(n int) []byte {
	rs := make([]byte, n)
	for i := range rs {
		rs[i] = byte(i % 251)
	}
	return rs
}

func testCred(url string) *Credential {
	return &Credential{
		UploadURL: url,
		Method:    "PUT",
		Headers:   map[string]string{"AccessKey": "secret"},
	}
}

func newTestUploader(tr ITransport, sl *fakeSleeper, opts ...Option) *Uploader {
	u := New(append([]Option{WithTransport(tr)}, opts...)...)
	u.c.sleep = sl.sleep
	return u
}

func TestUploadSingleRequest(t *testing.T) {
	tr := &fakeTransport{}
	sl := &fakeSleeper{}
	u := newTestUploader(tr, sl)
	data := makeData(1 * mib)
	var got []int
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", data), testCred("https://host/library/1/videos/v1"), func(p int) {
		got = append(got, p)
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(tr.sent))
	c := tr.sent[0]
	assert.Equal(t, "PUT", c.method)
	assert.Equal(t, "https://host/library/1/videos/v1", c.url)
	assert.Equal(t, "secret", c.header["AccessKey"])
	_, ok := c.header["Content-Range"]
	assert.False(t, ok)
	assert.Equal(t, data, c.body)
	assert.Equal(t, 100, got[len(got)-1])
	assert.Equal(t, 0, len(sl.delays))
}

func TestUploadMultiChunk(t *testing.T) {
	tr := &fakeTransport{}
	sl := &fakeSleeper{}
	cl := &fakeCleaner{}
	u := newTestUploader(tr, sl, WithCleaner(cl))
	data := makeData(12 * mib)
	var got []int
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", data), testCred("https://host/library/1/videos/v1"), func(p int) {
		got = append(got, p)
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, len(tr.sent))
	assert.Equal(t, "bytes 0-5242879/12582912", tr.sent[0].header["Content-Range"])
	assert.Equal(t, "bytes 5242880-10485759/12582912", tr.sent[1].header["Content-Range"])
	assert.Equal(t, "bytes 10485760-12582911/12582912", tr.sent[2].header["Content-Range"])
	assert.Equal(t, 5*mib, len(tr.sent[0].body))
	assert.Equal(t, 5*mib, len(tr.sent[1].body))
	assert.Equal(t, 2*mib, len(tr.sent[2].body))

	var joined []byte
	for _, c := range tr.sent {
		joined = append(joined, c.body...)
	}
	assert.Equal(t, data, joined)

	full := 0
	for i, p := range got {
		if i > 0 {
			assert.True(t, p >= got[i-1], "progress went back: %v", got)
		}
		if p == 100 {
			full++
		}
	}
	assert.Equal(t, 1, full)
	assert.Equal(t, 100, got[len(got)-1])
	assert.Equal(t, 0, len(cl.ids))
}

func TestUploadRetryThenSucceed(t *testing.T) {
	tr := &fakeTransport{
		onSend: func(idx int, c *sentChunk) error {
			if idx < 2 {
				return &StatusError{StatusCode: http.StatusBadGateway}
			}
			return nil
		},
	}
	sl := &fakeSleeper{}
	var states []string
	u := newTestUploader(tr, sl, WithStateHook(func(st State, chunk int) {
		states = append(states, fmt.Sprintf("%s:%d", st, chunk))
	}))
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", makeData(100)), testCred("https://host/videos/v1"), nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(tr.sent))
	assert.Equal(t, []time.Duration{DefaultRetryDelay, DefaultRetryDelay}, sl.delays)
	assert.Equal(t, []string{
		"splitting:-1",
		"transmitting:0",
		"retrying:0",
		"transmitting:0",
		"retrying:0",
		"transmitting:0",
		"chunk_done:0",
		"completed:-1",
	}, states)
}

func TestUploadBoundedRetry(t *testing.T) {
	tr := &fakeTransport{
		onSend: func(idx int, c *sentChunk) error {
			return &StatusError{StatusCode: http.StatusInternalServerError, Body: fmt.Sprintf("fail-%d", idx)}
		},
	}
	sl := &fakeSleeper{}
	cl := &fakeCleaner{}
	var last State
	u := newTestUploader(tr, sl, WithCleaner(cl), WithStateHook(func(st State, chunk int) {
		last = st
	}))
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", makeData(100)), testCred("https://host/library/1/videos/v9"), nil)
	assert.Error(t, err)
	assert.Equal(t, DefaultMaxRetries, len(tr.sent))
	assert.Equal(t, []time.Duration{DefaultRetryDelay, DefaultRetryDelay}, sl.delays)
	assert.Equal(t, StateFailed, last)

	var upErr *UploadError
	assert.True(t, errors.As(err, &upErr))
	assert.Equal(t, KindTransport, upErr.Kind)
	assert.Equal(t, 0, upErr.Chunk)
	assert.Equal(t, 3, upErr.Attempts)
	var st *StatusError
	assert.True(t, errors.As(err, &st))
	assert.Equal(t, "fail-2", st.Body)
	assert.Equal(t, []string{"v9"}, cl.ids)
}

func TestUploadFailFast(t *testing.T) {
	tr := &fakeTransport{}
	tr.onSend = func(idx int, c *sentChunk) error {
		if tr.chunkStart(c) == 5*mib {
			return errors.New("connection reset by peer")
		}
		return nil
	}
	sl := &fakeSleeper{}
	cl := &fakeCleaner{}
	u := newTestUploader(tr, sl, WithCleaner(cl))
	var got []int
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", makeData(12*mib)), testCred("https://host/videos/v2"), func(p int) {
		got = append(got, p)
	})
	assert.Error(t, err)
	assert.Equal(t, KindNetwork, Classify(err))
	// chunk 0 once, chunk 1 three times, chunk 2 never
	assert.Equal(t, 4, len(tr.sent))
	for _, c := range tr.sent[1:] {
		assert.Equal(t, int64(5*mib), tr.chunkStart(c))
	}
	assert.Equal(t, []string{"v2"}, cl.ids)
	for _, p := range got {
		assert.True(t, p < 100)
	}
}

func TestUploadCleanupErrorKeepsUploadError(t *testing.T) {
	tr := &fakeTransport{
		onSend: func(idx int, c *sentChunk) error {
			return &StatusError{StatusCode: http.StatusServiceUnavailable}
		},
	}
	sl := &fakeSleeper{}
	cl := &fakeCleaner{err: errors.New("delete failed")}
	u := newTestUploader(tr, sl, WithCleaner(cl))
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", makeData(10)), testCred("https://host/videos/v3"), nil)
	var st *StatusError
	assert.True(t, errors.As(err, &st))
	assert.Equal(t, http.StatusServiceUnavailable, st.StatusCode)
	assert.NotContains(t, err.Error(), "delete failed")
	assert.Equal(t, []string{"v3"}, cl.ids)
}

func TestUploadCleanupSkippedWithoutResourceID(t *testing.T) {
	tr := &fakeTransport{
		onSend: func(idx int, c *sentChunk) error {
			return errors.New("boom")
		},
	}
	cl := &fakeCleaner{}
	u := newTestUploader(tr, &fakeSleeper{}, WithCleaner(cl), WithMaxRetries(1))
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", makeData(10)), testCred("https://host/"), nil)
	assert.Error(t, err)
	assert.Equal(t, 1, len(tr.sent))
	assert.Equal(t, 0, len(cl.ids))
}

func TestUploadCanceledDuringRetryWait(t *testing.T) {
	tr := &fakeTransport{
		onSend: func(idx int, c *sentChunk) error {
			return &StatusError{StatusCode: http.StatusBadGateway}
		},
	}
	sl := &fakeSleeper{err: context.Canceled}
	cl := &fakeCleaner{}
	u := newTestUploader(tr, sl, WithCleaner(cl))
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", makeData(10)), testCred("https://host/videos/v4"), nil)
	var upErr *UploadError
	assert.True(t, errors.As(err, &upErr))
	assert.Equal(t, KindAborted, upErr.Kind)
	assert.Equal(t, 1, upErr.Attempts)
	assert.Equal(t, 1, len(tr.sent))
	assert.Equal(t, []string{"v4"}, cl.ids)
}

func TestUploadCleanupUsesDetachedContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &fakeTransport{
		onSend: func(idx int, c *sentChunk) error {
			cancel()
			return fmt.Errorf("do http request failed, err:%w", context.Canceled)
		},
	}
	var cleanupErr error
	cl := CleanerFunc(func(ctx context.Context, id string) error {
		cleanupErr = ctx.Err()
		return nil
	})
	u := New(WithTransport(tr), WithCleaner(cl), WithRetryDelay(time.Millisecond))
	err := u.Upload(ctx, NewBytesSource("a.mp4", makeData(10)), testCred("https://host/videos/v5"), nil)
	assert.Equal(t, KindAborted, Classify(err))
	assert.Equal(t, 1, len(tr.sent))
	assert.NoError(t, cleanupErr)
}

func TestUploadValidation(t *testing.T) {
	u := New(WithTransport(&fakeTransport{}))
	err := u.Upload(context.Background(), NewBytesSource("a", nil), testCred("https://host/videos/v"), nil)
	assert.True(t, errors.Is(err, ErrEmptySource))
	err = u.Upload(context.Background(), NewBytesSource("a", []byte("x")), nil, nil)
	assert.True(t, errors.Is(err, ErrNoUploadURL))
	err = u.Upload(context.Background(), NewBytesSource("a", []byte("x")), &Credential{}, nil)
	assert.True(t, errors.Is(err, ErrNoUploadURL))
}

func TestUploadRealRetryDelay(t *testing.T) {
	tr := &fakeTransport{
		onSend: func(idx int, c *sentChunk) error {
			return &StatusError{StatusCode: http.StatusInternalServerError}
		},
	}
	u := New(WithTransport(tr), WithRetryDelay(20*time.Millisecond))
	start := time.Now()
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", makeData(10)), testCred("https://host/videos/v6"), nil)
	assert.Error(t, err)
	assert.True(t, time.Since(start) >= 40*time.Millisecond)
	assert.Equal(t, 3, len(tr.sent))
}

func TestUploadWithChanProgress(t *testing.T) {
	u := newTestUploader(&fakeTransport{}, &fakeSleeper{}, WithChunkSize(10))
	ch := make(chan int, 128)
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", makeData(35)), testCred("https://host/videos/v7"), ChanProgress(ch))
	assert.NoError(t, err)
	close(ch)
	var last int
	for p := range ch {
		assert.True(t, p >= last)
		last = p
	}
	assert.Equal(t, 100, last)
}

func TestUploadOverHTTPAlwaysFailing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("storage unavailable"))
	}))
	defer srv.Close()

	sl := &fakeSleeper{}
	cl := &fakeCleaner{}
	u := newTestUploader(NewHTTPTransport(), sl, WithCleaner(cl))
	err := u.Upload(context.Background(), NewBytesSource("a.mp4", makeData(1*mib)), testCred(srv.URL+"/library/7/videos/vid-123"), nil)
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, 2, len(sl.delays))
	var st *StatusError
	assert.True(t, errors.As(err, &st))
	assert.Equal(t, http.StatusInternalServerError, st.StatusCode)
	assert.Contains(t, st.Body, "storage unavailable")
	assert.Equal(t, KindTransport, Classify(err))
	assert.Equal(t, []string{"vid-123"}, cl.ids)
}

func TestUploadFile(t *testing.T) {
	tr := &fakeTransport{}
	u := newTestUploader(tr, &fakeSleeper{})
	err := u.UploadFile(context.Background(), "/path/not/exist.mp4", testCred("https://host/videos/v8"), nil)
	assert.Error(t, err)
	assert.Equal(t, 0, len(tr.sent))
}

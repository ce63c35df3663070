package uploader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

var (
	ErrEmptySource = errors.New("empty source")
	ErrNoUploadURL = errors.New("no upload url found")
	// ErrAborted is returned by a transport when the transfer was cancelled under it.
	ErrAborted = errors.New("upload aborted")
)

type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindTransport
	KindTimeout
	KindAborted
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindAborted:
		return "aborted"
	default:
		return "network"
	}
}

// Describe returns text suitable for showing to the person who started the upload.
func (k ErrorKind) Describe() string {
	switch k {
	case KindTransport:
		return "The storage server rejected the upload. Please try again later."
	case KindTimeout:
		return "The upload timed out. Please check your connection and try again."
	case KindAborted:
		return "The upload was cancelled."
	default:
		return "A network error interrupted the upload. Please check your connection and try again."
	}
}

// StatusError is a non-2xx answer of the chunk endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code not ok, code:%d, body:%s", e.StatusCode, e.Body)
}

// UploadError is the terminal failure of an upload, it wraps the error of the last attempt.
type UploadError struct {
	Kind     ErrorKind
	Chunk    int
	Attempts int
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload chunk:%d failed after %d attempts, kind:%s, err:%v", e.Chunk, e.Attempts, e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Classify maps an attempt error to its kind without looking at the message text.
func Classify(err error) ErrorKind {
	var upErr *UploadError
	if errors.As(err, &upErr) {
		return upErr.Kind
	}
	var stErr *StatusError
	if errors.As(err, &stErr) {
		return KindTransport
	}
	if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
		return KindAborted
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}

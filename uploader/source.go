package uploader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ISource is an immutable byte sequence with a known size that can be sliced
// into ranges. Every attempt reads its chunk again through ReadAt.
type ISource interface {
	io.ReaderAt
	Size() int64
	Name() string
}

type bytesSource struct {
	name string
	r    *bytes.Reader
}

func (b *bytesSource) ReadAt(p []byte, off int64) (int, error) {
	return b.r.ReadAt(p, off)
}

func (b *bytesSource) Size() int64 {
	return b.r.Size()
}

func (b *bytesSource) Name() string {
	return b.name
}

// NewBytesSource wraps an in-memory buffer.
func NewBytesSource(name string, data []byte) ISource {
	return &bytesSource{name: name, r: bytes.NewReader(data)}
}

// FileSource reads from a local file, the caller must Close it.
type FileSource struct {
	f    *os.File
	size int64
	name string
}

func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file failed, err:%w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat file failed, err:%w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("path:%s is a directory", path)
	}
	return &FileSource{f: f, size: info.Size(), name: filepath.Base(path)}, nil
}

func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *FileSource) Size() int64 {
	return s.size
}

func (s *FileSource) Name() string {
	return s.name
}

func (s *FileSource) Close() error {
	return s.f.Close()
}

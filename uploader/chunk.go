package uploader

import "fmt"

// Chunk is the byte range [Start, End) of the source.
type Chunk struct {
	Index int
	Start int64
	End   int64
}

func (c Chunk) Size() int64 {
	return c.End - c.Start
}

// ContentRange renders the header value for this chunk, the end offset is inclusive.
func (c Chunk) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", c.Start, c.End-1, total)
}

func chunkCount(size int64, chunkSize int64) int {
	return int((size + chunkSize - 1) / chunkSize)
}

// SplitChunks partitions [0, size) into ceil(size/chunkSize) contiguous chunks.
// A size not above chunkSize yields a single chunk.
func SplitChunks(size int64, chunkSize int64) []Chunk {
	if size <= 0 || chunkSize <= 0 {
		return nil
	}
	if size <= chunkSize {
		return []Chunk{{Index: 0, Start: 0, End: size}}
	}
	cnt := chunkCount(size, chunkSize)
	rs := make([]Chunk, 0, cnt)
	for i := 0; i < cnt; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize
		if i == cnt-1 {
			end = size
		}
		rs = append(rs, Chunk{Index: i, Start: start, End: end})
	}
	return rs
}

package uploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerMonotonicAcrossRetry(t *testing.T) {
	var got []int
	p := newProgressTracker(2, func(pct int) {
		got = append(got, pct)
	})
	p.onChunkBytes(50, 100)
	p.onChunkBytes(80, 100)
	// a retried attempt starts from zero again
	p.onChunkBytes(10, 100)
	p.onChunkBytes(60, 100)
	p.onChunkBytes(100, 100)
	p.onChunkDone()
	assert.Equal(t, []int{25, 40, 50, 50}, got)
}

func TestProgressTrackerCapsInflight(t *testing.T) {
	var got []int
	p := newProgressTracker(1, func(pct int) {
		got = append(got, pct)
	})
	p.onChunkBytes(100, 100)
	assert.Equal(t, []int{99}, got)
	p.onChunkDone()
	assert.Equal(t, []int{99, 100}, got)
	assert.Equal(t, 100, p.percent())
}

func TestProgressTrackerEmitsEveryChunkDone(t *testing.T) {
	var got []int
	p := newProgressTracker(3, func(pct int) {
		got = append(got, pct)
	})
	for i := 0; i < 3; i++ {
		p.onChunkDone()
	}
	assert.Equal(t, []int{33, 66, 100}, got)
}

func TestProgressTrackerNilFunc(t *testing.T) {
	p := newProgressTracker(2, nil)
	p.onChunkBytes(10, 20)
	p.onChunkDone()
	p.onChunkDone()
	assert.Equal(t, 100, p.percent())
}

func TestChanProgress(t *testing.T) {
	ch := make(chan int, 2)
	fn := ChanProgress(ch)
	fn(10)
	fn(100)
	assert.Equal(t, 10, <-ch)
	assert.Equal(t, 100, <-ch)
}

package uploader

// ProgressFunc receives the overall percentage, 0..100.
type ProgressFunc func(percent int)

// ChanProgress sends every reported value to ch. The send blocks, so the
// receiver must keep draining until the upload returns.
func ChanProgress(ch chan<- int) ProgressFunc {
	return func(percent int) {
		ch <- percent
	}
}

const maxInflightPercent = 99

// progressTracker folds per-chunk byte progress into one non-decreasing percentage.
type progressTracker struct {
	fn    ProgressFunc
	total int
	done  int
	last  int
}

func newProgressTracker(total int, fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn, total: total, last: -1}
}

func (p *progressTracker) percent() int {
	return p.last
}

// onChunkBytes reports sent bytes of the chunk currently in flight. A value is
// only emitted when it moves forward, a restarted attempt never pulls it back.
func (p *progressTracker) onChunkBytes(sent int64, size int64) {
	if p.fn == nil || size <= 0 {
		return
	}
	frac := float64(sent) / float64(size)
	if frac > 1 {
		frac = 1
	}
	pct := int((float64(p.done) + frac) / float64(p.total) * 100)
	if pct > maxInflightPercent {
		pct = maxInflightPercent
	}
	if pct <= p.last {
		return
	}
	p.emit(pct)
}

// onChunkDone is called once the endpoint acknowledged a chunk, it always emits.
func (p *progressTracker) onChunkDone() {
	p.done++
	pct := p.done * 100 / p.total
	if pct < p.last {
		pct = p.last
	}
	if p.fn == nil {
		p.last = pct
		return
	}
	p.emit(pct)
}

func (p *progressTracker) emit(pct int) {
	p.last = pct
	p.fn(pct)
}

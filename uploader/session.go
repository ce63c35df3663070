package uploader

import "go.uber.org/zap"

type State int

const (
	StateIdle State = iota
	StateSplitting
	StateTransmittingChunk
	StateRetryingChunk
	StateChunkDone
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSplitting:
		return "splitting"
	case StateTransmittingChunk:
		return "transmitting"
	case StateRetryingChunk:
		return "retrying"
	case StateChunkDone:
		return "chunk_done"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// StateHook observes the transitions of one upload call, chunk is -1 for
// transitions that are not bound to a chunk.
type StateHook func(state State, chunk int)

// uploadSession is owned by a single Upload call and dropped when it returns.
type uploadSession struct {
	id       string
	src      ISource
	cred     *Credential
	chunks   []Chunk
	state    State
	hook     StateHook
	progress *progressTracker
	logger   *zap.Logger
}

func (s *uploadSession) total() int {
	return len(s.chunks)
}

func (s *uploadSession) transition(st State, chunk int) {
	s.state = st
	if s.hook != nil {
		s.hook(st, chunk)
	}
}

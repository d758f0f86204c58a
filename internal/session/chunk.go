package session

import (
	"sync/atomic"
	"time"

	"github.com/mjelde/meetscribe/internal/speaker"
)

// Status tracks a chunk through the pipeline. Transitions are
// Pending → InFlight → (Succeeded | Failed) → Released; Released is terminal.
// Once the scheduler hands a chunk off, the worker pool exclusively owns its
// transitions.
type Status int32

const (
	StatusPending Status = iota
	StatusInFlight
	StatusSucceeded
	StatusFailed
	StatusReleased
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInFlight:
		return "in_flight"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusReleased:
		return "released"
	}
	return "unknown"
}

// Chunk is one rotated slice of captured audio. Data is immutable after
// rotation; no other goroutine writes into it.
type Chunk struct {
	SessionID string
	Index     uint64
	CreatedAt time.Duration // offset from capture start
	Data      []byte

	status atomic.Int32
}

func (c *Chunk) Status() Status {
	return Status(c.status.Load())
}

func (c *Chunk) setStatus(s Status) {
	c.status.Store(int32(s))
}

func (c *Chunk) SizeBytes() int {
	return len(c.Data)
}

// Fragment is one emitted unit of finalized transcript. IsFinal is always
// true: the pipeline never emits streaming partials within a chunk.
// Emission order may differ from chunk order; consumers that need
// chronological text sort by ChunkIndex.
type Fragment struct {
	Text       string
	IsFinal    bool
	Speakers   []speaker.Entry
	ChunkIndex uint64
	Timestamp  time.Time
}

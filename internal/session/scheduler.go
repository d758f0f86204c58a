package session

import (
	"context"
	"log"
	"time"

	"github.com/mjelde/meetscribe/internal/recording"
)

// Scheduler slices the capture stream into fixed-duration chunks. Every
// interval it closes the accumulating buffer and hands it to onRotate, then
// keeps appending into a fresh buffer; capture is never paused by rotation.
// Buffers below minBytes are dropped rather than submitted, so near-silence
// tails do not burn a transcription call.
type Scheduler struct {
	interval time.Duration
	minBytes int
	onRotate func(data []byte, offset time.Duration)
}

func NewScheduler(interval time.Duration, minBytes int, onRotate func(data []byte, offset time.Duration)) *Scheduler {
	return &Scheduler{
		interval: interval,
		minBytes: minBytes,
		onRotate: onRotate,
	}
}

// Run consumes frames until the channel closes or ctx is cancelled. A closed
// channel gets one final rotation to flush the partial buffer; cancellation
// is a hard stop and discards it. The buffer is owned by this goroutine
// alone, so rotation is a plain swap with no locking.
func (s *Scheduler) Run(ctx context.Context, frames <-chan recording.Frame) {
	start := time.Now()
	buf := make([]byte, 0, s.minBytes*2)
	bufStart := time.Duration(0)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	rotate := func() {
		offset := bufStart
		closed := buf
		buf = make([]byte, 0, s.minBytes*2)
		bufStart = time.Since(start)

		if len(closed) == 0 {
			return
		}
		if len(closed) < s.minBytes {
			log.Printf("session: dropping %d byte buffer below minimum %d", len(closed), s.minBytes)
			return
		}
		s.onRotate(closed, offset)
	}

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				rotate() // flush the partial buffer
				return
			}
			buf = append(buf, frame.Data...)

		case <-ticker.C:
			rotate()

		case <-ctx.Done():
			return
		}
	}
}

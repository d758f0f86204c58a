package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mjelde/meetscribe/internal/chunkstore"
	"github.com/mjelde/meetscribe/internal/speaker"
	"github.com/mjelde/meetscribe/internal/transcriber"
)

// queueDepth bounds how many rotated chunks can wait behind the worker
// window before rotation itself backpressures.
const queueDepth = 64

// pool runs the bounded set of transcription workers. Each rotated chunk is
// processed by exactly one worker: spill to the store, transcribe, merge
// speakers, emit, release. The artifact release is deferred so it happens on
// every exit path.
type pool struct {
	store   *chunkstore.Store
	adapter transcriber.Adapter
	tracker *speaker.Tracker
	hints   transcriber.Hints

	queue chan *Chunk
	wg    sync.WaitGroup

	emit func(Fragment)
	fail func(error)
}

func newPool(size int, store *chunkstore.Store, adapter transcriber.Adapter, tracker *speaker.Tracker,
	hints transcriber.Hints, emit func(Fragment), fail func(error)) *pool {

	p := &pool{
		store:   store,
		adapter: adapter,
		tracker: tracker,
		hints:   hints,
		queue:   make(chan *Chunk, queueDepth),
		emit:    emit,
		fail:    fail,
	}
	p.wg.Add(size)
	return p
}

func (p *pool) start(ctx context.Context, size int) {
	for i := 0; i < size; i++ {
		go p.worker(ctx)
	}
}

// submit queues a rotated chunk. Chunks past the concurrency window wait
// here instead of firing immediately.
func (p *pool) submit(c *Chunk) {
	p.queue <- c
}

// close stops intake. Already-queued chunks are still drained.
func (p *pool) close() {
	close(p.queue)
}

func (p *pool) wait() {
	p.wg.Wait()
}

func (p *pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for c := range p.queue {
		p.process(ctx, c)
	}
}

func (p *pool) process(ctx context.Context, c *Chunk) {
	ref, err := p.store.Create(c.SessionID, c.Index, c.Data)
	if err != nil {
		// Never reached the provider; nothing to release.
		c.setStatus(StatusFailed)
		p.fail(&ChunkError{Index: c.Index, Stage: StageStore, Err: err})
		c.setStatus(StatusReleased)
		return
	}
	defer func() {
		p.store.Release(ref)
		c.setStatus(StatusReleased)
	}()

	data, err := p.store.Read(ref)
	if err != nil {
		c.setStatus(StatusFailed)
		p.fail(&ChunkError{Index: c.Index, Stage: StageStore, Err: err})
		return
	}

	c.setStatus(StatusInFlight)
	result, err := p.adapter.Transcribe(ctx, data, p.hints)
	if err != nil {
		c.setStatus(StatusFailed)
		p.fail(&ChunkError{Index: c.Index, Stage: StageTranscribe, Err: err})
		return
	}

	now := time.Now()
	p.tracker.Merge(mentionsFrom(result.Speakers, now))

	c.setStatus(StatusSucceeded)
	log.Printf("session: chunk %d transcribed (%d bytes, %d speakers)",
		c.Index, c.SizeBytes(), len(result.Speakers))

	p.emit(Fragment{
		Text:       result.Text,
		IsFinal:    true,
		Speakers:   p.attributed(result.Speakers),
		ChunkIndex: c.Index,
		Timestamp:  now,
	})
}

// mentionsFrom collapses a result's segments into one mention per speaker
// id, so SegmentCount counts chunks, not words.
func mentionsFrom(speakers []transcriber.Speaker, at time.Time) []speaker.Mention {
	seen := make(map[string]bool, len(speakers))
	var mentions []speaker.Mention
	for _, s := range speakers {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		mentions = append(mentions, speaker.Mention{
			ID:          s.ID,
			DisplayName: s.DisplayName,
			At:          at,
		})
	}
	return mentions
}

// attributed resolves the fragment's speakers against the tracker so the
// emitted entries carry their session-stable color and name.
func (p *pool) attributed(speakers []transcriber.Speaker) []speaker.Entry {
	var out []speaker.Entry
	seen := make(map[string]bool, len(speakers))
	for _, s := range speakers {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		if e, ok := p.tracker.Lookup(s.ID); ok {
			out = append(out, e)
		}
	}
	return out
}

package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mjelde/meetscribe/internal/chunkstore"
	"github.com/mjelde/meetscribe/internal/recording"
	"github.com/mjelde/meetscribe/internal/speaker"
	"github.com/mjelde/meetscribe/internal/transcriber"
)

// State is the controller's lifecycle position. A session moves
// Idle → Recording → Draining → Idle; Draining accepts no new chunks and
// waits for in-flight work to finish.
type State string

const (
	Idle      State = "idle"
	Recording State = "recording"
	Draining  State = "draining"
)

// Deps are the collaborators a controller drives. NewRecorder exists so
// tests can substitute a scripted capture source.
type Deps struct {
	Store       *chunkstore.Store
	Tracker     *speaker.Tracker
	Adapter     transcriber.Adapter
	NewRecorder func(recording.Config) recording.Recorder
}

// Controller owns the session state machine and wires capture → scheduler →
// worker pool → result callbacks. One controller serves one host; sessions
// run one at a time.
type Controller struct {
	store       *chunkstore.Store
	tracker     *speaker.Tracker
	adapter     transcriber.Adapter
	newRecorder func(recording.Config) recording.Recorder

	mu       sync.Mutex
	state    State
	recorder recording.Recorder
	cancel   context.CancelFunc
	done     chan struct{}

	// Result handling is serialized even though transcription calls run in
	// parallel; callbacks never run concurrently with each other.
	emitMu sync.Mutex

	cbMu     sync.RWMutex
	onResult func(Fragment)
	onError  func(error)
}

func New(deps Deps) *Controller {
	if deps.Tracker == nil {
		deps.Tracker = speaker.NewTracker()
	}
	if deps.NewRecorder == nil {
		deps.NewRecorder = func(cfg recording.Config) recording.Recorder {
			return recording.New(cfg)
		}
	}
	return &Controller{
		store:       deps.Store,
		tracker:     deps.Tracker,
		adapter:     deps.Adapter,
		newRecorder: deps.NewRecorder,
		state:       Idle,
	}
}

// OnResult registers the fragment callback. Set before Start; the callback
// must not assume anything about which goroutine invokes it.
func (c *Controller) OnResult(fn func(Fragment)) {
	c.cbMu.Lock()
	c.onResult = fn
	c.cbMu.Unlock()
}

// OnError registers the error callback. Chunk-level errors arrive as
// *ChunkError and never stop the session; *CaptureError means the session is
// force-draining.
func (c *Controller) OnError(fn func(error)) {
	c.cbMu.Lock()
	c.onError = fn
	c.cbMu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Speakers returns the current speaker context. Valid in any state; after a
// session ends the context stays readable until ClearSpeakers.
func (c *Controller) Speakers() []speaker.Entry {
	return c.tracker.Snapshot()
}

func (c *Controller) ClearSpeakers() {
	c.tracker.Clear()
}

// Start validates options and begins a session. Rejected synchronously with
// *ConfigError while another session is active.
func (c *Controller) Start(opts Options) error {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		return &ConfigError{Reason: "session already active (state " + string(c.state) + ")"}
	}

	recorder := c.newRecorder(opts.Recording)

	runCtx, cancel := context.WithCancel(context.Background())
	frameCh, errCh, err := recorder.Start(runCtx)
	if err != nil {
		cancel()
		return &CaptureError{Err: err}
	}

	id := uuid.NewString()[:8]
	c.state = Recording
	c.recorder = recorder
	c.cancel = cancel
	c.done = make(chan struct{})

	log.Printf("session %s: started (chunk %v, window %d, source %s)",
		id, opts.ChunkDuration, opts.MaxInFlight, opts.Recording.Source)

	go c.run(runCtx, id, opts, frameCh, errCh)
	return nil
}

// Stop transitions Recording → Draining and blocks until every queued and
// in-flight chunk reaches a terminal status and is released. Cancelling ctx
// hard-cancels: in-flight provider calls are abandoned, but artifact release
// still runs on their way out.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Idle:
		c.mu.Unlock()
		return nil
	case Recording:
		c.state = Draining
		recorder := c.recorder
		c.mu.Unlock()
		recorder.Stop()
	case Draining:
		c.mu.Unlock()
	}

	c.mu.Lock()
	done := c.done
	cancel := c.cancel
	c.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (c *Controller) run(ctx context.Context, id string, opts Options,
	frameCh <-chan recording.Frame, errCh <-chan error) {

	hints := transcriber.Hints{MaxSpeakers: opts.MaxSpeakers, Language: opts.Language}
	p := newPool(opts.MaxInFlight, c.store, c.adapter, c.tracker, hints, c.emitResult, c.emitError)
	p.start(ctx, opts.MaxInFlight)

	// Capture failures force a drain: stopping the recorder closes frameCh,
	// which unwinds the scheduler below.
	go func() {
		for err := range errCh {
			if err == nil {
				continue
			}
			c.emitError(&CaptureError{Err: err})
			c.forceDrain()
		}
	}()

	sweepStop := make(chan struct{})
	go c.sweepLoop(opts, sweepStop)

	// chunkCounter is mutated only inside the rotation callback, which the
	// scheduler runs from a single goroutine.
	var chunkCounter uint64
	sched := NewScheduler(opts.ChunkDuration, opts.MinChunkBytes, func(data []byte, offset time.Duration) {
		chunk := &Chunk{
			SessionID: id,
			Index:     chunkCounter,
			CreatedAt: offset,
			Data:      data,
		}
		chunkCounter++
		p.submit(chunk)
	})
	sched.Run(ctx, frameCh)

	p.close()
	p.wait()
	close(sweepStop)

	c.mu.Lock()
	c.state = Idle
	c.recorder = nil
	done := c.done
	c.mu.Unlock()

	log.Printf("session %s: drained after %d chunks", id, chunkCounter)
	close(done)
}

func (c *Controller) sweepLoop(opts Options, stop <-chan struct{}) {
	ticker := time.NewTicker(opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if evicted := c.tracker.Sweep(time.Now(), opts.SpeakerTimeout); len(evicted) > 0 {
				log.Printf("session: evicted stale speakers %v", evicted)
			}
		case <-stop:
			return
		}
	}
}

func (c *Controller) forceDrain() {
	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		return
	}
	c.state = Draining
	recorder := c.recorder
	c.mu.Unlock()
	recorder.Stop()
}

func (c *Controller) emitResult(f Fragment) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.cbMu.RLock()
	fn := c.onResult
	c.cbMu.RUnlock()
	if fn != nil {
		fn(f)
	}
}

func (c *Controller) emitError(err error) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.cbMu.RLock()
	fn := c.onError
	c.cbMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mjelde/meetscribe/internal/chunkstore"
	"github.com/mjelde/meetscribe/internal/recording"
	"github.com/mjelde/meetscribe/internal/speaker"
	"github.com/mjelde/meetscribe/internal/transcriber"
)

// mockRecorder is a scriptable capture source for controller tests. Stop
// closes the channels the way the real capture loop does on cancellation.
type mockRecorder struct {
	startErr error

	mu        sync.Mutex
	frameCh   chan recording.Frame
	errCh     chan error
	recording atomic.Bool
}

func (m *mockRecorder) Start(ctx context.Context) (<-chan recording.Frame, <-chan error, error) {
	if m.startErr != nil {
		return nil, nil, m.startErr
	}
	m.mu.Lock()
	m.frameCh = make(chan recording.Frame, 64)
	m.errCh = make(chan error, 1)
	m.mu.Unlock()
	m.recording.Store(true)
	return m.frameCh, m.errCh, nil
}

func (m *mockRecorder) emitFrame(data []byte) {
	m.mu.Lock()
	ch := m.frameCh
	m.mu.Unlock()
	if ch != nil && m.recording.Load() {
		ch <- recording.Frame{Data: data, Timestamp: time.Now()}
	}
}

func (m *mockRecorder) emitError(err error) {
	m.mu.Lock()
	ch := m.errCh
	m.mu.Unlock()
	if ch != nil && m.recording.Load() {
		ch <- err
	}
}

func (m *mockRecorder) Stop() error {
	if !m.recording.CompareAndSwap(true, false) {
		return nil
	}
	m.mu.Lock()
	close(m.frameCh)
	close(m.errCh)
	m.frameCh = nil
	m.errCh = nil
	m.mu.Unlock()
	return nil
}

func (m *mockRecorder) IsRecording() bool { return m.recording.Load() }

type controllerFixture struct {
	controller *Controller
	recorder   *mockRecorder
	store      *chunkstore.Store
	tracker    *speaker.Tracker

	mu        sync.Mutex
	fragments []Fragment
	errs      []error
}

func newFixture(t *testing.T, adapter transcriber.Adapter) *controllerFixture {
	t.Helper()

	store, err := chunkstore.NewAt(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	f := &controllerFixture{
		recorder: &mockRecorder{},
		store:    store,
		tracker:  speaker.NewTracker(),
	}
	f.controller = New(Deps{
		Store:   store,
		Tracker: f.tracker,
		Adapter: adapter,
		NewRecorder: func(recording.Config) recording.Recorder {
			return f.recorder
		},
	})
	f.controller.OnResult(func(frag Fragment) {
		f.mu.Lock()
		f.fragments = append(f.fragments, frag)
		f.mu.Unlock()
	})
	f.controller.OnError(func(err error) {
		f.mu.Lock()
		f.errs = append(f.errs, err)
		f.mu.Unlock()
	})
	return f
}

func (f *controllerFixture) fragmentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fragments)
}

func (f *controllerFixture) errCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errs)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.ChunkDuration = 500 * time.Millisecond
	opts.MinChunkBytes = 8
	opts.MaxInFlight = 2
	return opts
}

func stopController(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{})

	if f.controller.State() != Idle {
		t.Fatalf("initial state = %s", f.controller.State())
	}

	if err := f.controller.Start(testOptions()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if f.controller.State() != Recording {
		t.Errorf("state after start = %s, want recording", f.controller.State())
	}

	f.recorder.emitFrame(make([]byte, 64))
	stopController(t, f.controller)

	if f.controller.State() != Idle {
		t.Errorf("state after stop = %s, want idle", f.controller.State())
	}
	if f.store.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0 after drain", f.store.Outstanding())
	}

	// The flushed buffer became one transcribed chunk.
	if f.fragmentCount() != 1 {
		t.Errorf("fragments = %d, want 1", f.fragmentCount())
	}
}

func TestStartWhileActiveRejected(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{})

	if err := f.controller.Start(testOptions()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	err := f.controller.Start(testOptions())
	if !IsConfigError(err) {
		t.Errorf("second Start = %v, want ConfigError", err)
	}

	// The first session is unaffected.
	if f.controller.State() != Recording {
		t.Errorf("state = %s, want recording", f.controller.State())
	}
	f.recorder.emitFrame(make([]byte, 64))
	stopController(t, f.controller)
	if f.fragmentCount() != 1 {
		t.Errorf("fragments = %d, want 1 from the surviving session", f.fragmentCount())
	}
}

func TestStartInvalidOptions(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{})

	opts := testOptions()
	opts.ChunkDuration = 50 * time.Millisecond
	if err := f.controller.Start(opts); !IsConfigError(err) {
		t.Errorf("Start = %v, want ConfigError for bad chunk duration", err)
	}

	opts = testOptions()
	opts.MaxInFlight = 99
	if err := f.controller.Start(opts); !IsConfigError(err) {
		t.Errorf("Start = %v, want ConfigError for bad in-flight bound", err)
	}

	if f.controller.State() != Idle {
		t.Errorf("state = %s, rejected start must not leave Idle", f.controller.State())
	}
}

func TestStartCaptureFailure(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{})
	f.recorder.startErr = errors.New("pw-record not found")

	err := f.controller.Start(testOptions())
	if !IsCaptureError(err) {
		t.Errorf("Start = %v, want CaptureError", err)
	}
	if f.controller.State() != Idle {
		t.Errorf("state = %s, want idle", f.controller.State())
	}
}

func TestStopWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 8)
	adapter := &scriptedAdapter{fn: func(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error) {
		started <- struct{}{}
		<-release
		return transcriber.Result{Text: "slow"}, nil
	}}
	f := newFixture(t, adapter)

	if err := f.controller.Start(testOptions()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	f.recorder.emitFrame(make([]byte, 64))

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped <- f.controller.Stop(ctx)
	}()

	// The flushed chunk is now in flight; Stop must not return yet.
	<-started
	select {
	case <-stopped:
		t.Fatal("Stop returned while a chunk was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	if got := f.controller.State(); got != Draining {
		t.Errorf("state during drain = %s, want draining", got)
	}

	close(release)
	if err := <-stopped; err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if f.controller.State() != Idle {
		t.Errorf("state = %s, want idle", f.controller.State())
	}
	if f.store.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", f.store.Outstanding())
	}
	if f.fragmentCount() != 1 {
		t.Errorf("fragments = %d, drained chunk's result was lost", f.fragmentCount())
	}
}

func TestStopIdleIsNoop(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{})
	stopController(t, f.controller)
	if f.controller.State() != Idle {
		t.Errorf("state = %s", f.controller.State())
	}
}

func TestChunkFailureDoesNotStopSession(t *testing.T) {
	var calls atomic.Int64
	adapter := &scriptedAdapter{fn: func(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error) {
		if calls.Add(1) == 1 {
			return transcriber.Result{}, errors.New("connection refused")
		}
		return transcriber.Result{Text: "recovered"}, nil
	}}
	f := newFixture(t, adapter)

	opts := testOptions()
	if err := f.controller.Start(opts); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// First chunk rotates on the interval and fails; session keeps going.
	f.recorder.emitFrame(make([]byte, 64))
	time.Sleep(opts.ChunkDuration + 200*time.Millisecond)

	if f.controller.State() != Recording {
		t.Fatalf("state after chunk failure = %s, want recording", f.controller.State())
	}

	// Second chunk arrives via the final flush and succeeds.
	f.recorder.emitFrame(make([]byte, 64))
	stopController(t, f.controller)

	if f.errCount() != 1 {
		t.Errorf("errors = %d, want exactly 1", f.errCount())
	}
	f.mu.Lock()
	ce, ok := AsChunkError(f.errs[0])
	f.mu.Unlock()
	if !ok || ce.Index != 0 {
		t.Errorf("error = %+v, want ChunkError for index 0", f.errs[0])
	}

	if f.fragmentCount() != 1 {
		t.Errorf("fragments = %d, want 1 from the surviving chunk", f.fragmentCount())
	}
	if f.store.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, failed chunk's artifact leaked", f.store.Outstanding())
	}
}

func TestCaptureErrorForcesDrain(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{})

	if err := f.controller.Start(testOptions()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.recorder.emitFrame(make([]byte, 64))
	f.recorder.emitError(errors.New("device revoked"))

	// The controller must come back to Idle on its own.
	deadline := time.After(5 * time.Second)
	for f.controller.State() != Idle {
		select {
		case <-deadline:
			t.Fatal("controller did not return to idle after capture failure")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if f.errCount() == 0 {
		t.Fatal("no error surfaced for capture failure")
	}
	f.mu.Lock()
	first := f.errs[0]
	f.mu.Unlock()
	if !IsCaptureError(first) {
		t.Errorf("error = %v, want CaptureError", first)
	}
	if f.store.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", f.store.Outstanding())
	}
}

func TestFragmentOrderReconstructable(t *testing.T) {
	// Completion order is scrambled by per-chunk latency; sorting emitted
	// fragments by ChunkIndex must restore chronological order.
	adapter := &scriptedAdapter{fn: func(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error) {
		// Earlier chunks take longer than later ones.
		if audio[0] == 0 {
			time.Sleep(150 * time.Millisecond)
		}
		return transcriber.Result{Text: string(audio)}, nil
	}}

	store, err := chunkstore.NewAt(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	var mu sync.Mutex
	var emitted []Fragment
	p := newPool(2, store, adapter, speaker.NewTracker(), transcriber.Hints{},
		func(f Fragment) {
			mu.Lock()
			emitted = append(emitted, f)
			mu.Unlock()
		}, func(error) {})

	chunks := []*Chunk{
		{SessionID: "s1", Index: 0, Data: []byte{0, 'a'}},
		{SessionID: "s1", Index: 1, Data: []byte{1, 'b'}},
		{SessionID: "s1", Index: 2, Data: []byte{2, 'c'}},
	}
	runChunks(p, 2, chunks)

	if len(emitted) != 3 {
		t.Fatalf("fragments = %d, want 3", len(emitted))
	}

	sort.Slice(emitted, func(i, j int) bool { return emitted[i].ChunkIndex < emitted[j].ChunkIndex })
	var texts []string
	for _, f := range emitted {
		texts = append(texts, f.Text[1:])
	}
	if got := strings.Join(texts, ""); got != "abc" {
		t.Errorf("sorted transcript = %q, want abc", got)
	}
}

func TestSpeakersSurviveStopUntilCleared(t *testing.T) {
	adapter := &scriptedAdapter{fn: func(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error) {
		return transcriber.Result{
			Text:     "hi",
			Speakers: []transcriber.Speaker{{ID: "1"}},
		}, nil
	}}
	f := newFixture(t, adapter)

	if err := f.controller.Start(testOptions()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	f.recorder.emitFrame(make([]byte, 64))
	stopController(t, f.controller)

	if got := f.controller.Speakers(); len(got) != 1 {
		t.Fatalf("Speakers after stop = %d, want 1 (context left intact)", len(got))
	}

	f.controller.ClearSpeakers()
	if got := f.controller.Speakers(); len(got) != 0 {
		t.Errorf("Speakers after clear = %d, want 0", len(got))
	}
}

func TestHardCancelAbandonsButReleases(t *testing.T) {
	adapter := &scriptedAdapter{fn: func(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error) {
		<-ctx.Done()
		return transcriber.Result{}, ctx.Err()
	}}
	f := newFixture(t, adapter)

	if err := f.controller.Start(testOptions()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	f.recorder.emitFrame(make([]byte, 64))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := f.controller.Stop(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop = %v, want deadline exceeded from hard cancel", err)
	}

	if f.controller.State() != Idle {
		t.Errorf("state = %s, want idle", f.controller.State())
	}
	// Best-effort cleanup still ran for the abandoned call.
	if f.store.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", f.store.Outstanding())
	}
}

func TestChunkIndicesAreMonotonic(t *testing.T) {
	var mu sync.Mutex
	var indices []uint64
	adapter := &scriptedAdapter{fn: func(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error) {
		return transcriber.Result{Text: "x"}, nil
	}}
	f := newFixture(t, adapter)
	f.controller.OnResult(func(frag Fragment) {
		mu.Lock()
		indices = append(indices, frag.ChunkIndex)
		mu.Unlock()
	})

	opts := testOptions()
	if err := f.controller.Start(opts); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Two interval rotations plus a final flush.
	for i := 0; i < 3; i++ {
		f.recorder.emitFrame(make([]byte, 64))
		if i < 2 {
			time.Sleep(opts.ChunkDuration + 150*time.Millisecond)
		}
	}
	stopController(t, f.controller)

	mu.Lock()
	defer mu.Unlock()
	if len(indices) != 3 {
		t.Fatalf("fragments = %d, want 3", len(indices))
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for i, idx := range indices {
		if idx != uint64(i) {
			t.Errorf("indices = %v, want 0,1,2 with no reuse", indices)
			break
		}
	}
}

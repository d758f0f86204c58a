package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mjelde/meetscribe/internal/config"
	"github.com/mjelde/meetscribe/internal/recording"
	"github.com/mjelde/meetscribe/internal/transcriber"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	return &config.Config{
		Recording: config.RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16le",
			BufferSize:        4096,
			Device:            "",
			ChannelBufferSize: 20,
			Source:            "microphone",
		},
		Session: config.SessionConfig{
			ChunkDuration:  time.Second,
			MinChunkBytes:  64,
			MaxInFlight:    2,
			SpeakerTimeout: 10 * time.Second,
			SweepInterval:  time.Second,
		},
		Transcription: config.TranscriptionConfig{
			Provider:    "google",
			Language:    "en-US",
			Model:       "default",
			MaxSpeakers: 4,
		},
		Notifications: config.NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
		Providers: map[string]config.ProviderConfig{
			"google": {APIKey: "test-api-key"},
		},
	}
}

// MockRecorder is a scriptable capture source. Tests push frames and errors
// explicitly; Stop closes the channels the way a real capture loop does when
// its context is cancelled.
type MockRecorder struct {
	StartError error

	mu        sync.Mutex
	frameCh   chan recording.Frame
	errCh     chan error
	recording atomic.Bool
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

func (m *MockRecorder) Start(ctx context.Context) (<-chan recording.Frame, <-chan error, error) {
	if m.StartError != nil {
		return nil, nil, m.StartError
	}

	m.mu.Lock()
	m.frameCh = make(chan recording.Frame, 64)
	m.errCh = make(chan error, 1)
	m.mu.Unlock()

	m.recording.Store(true)
	return m.frameCh, m.errCh, nil
}

// EmitFrame pushes captured bytes into the pipeline.
func (m *MockRecorder) EmitFrame(data []byte) {
	m.mu.Lock()
	ch := m.frameCh
	m.mu.Unlock()
	if ch != nil && m.recording.Load() {
		ch <- recording.Frame{Data: data, Timestamp: time.Now()}
	}
}

// EmitError simulates a capture-source failure.
func (m *MockRecorder) EmitError(err error) {
	m.mu.Lock()
	ch := m.errCh
	m.mu.Unlock()
	if ch != nil && m.recording.Load() {
		ch <- err
	}
}

func (m *MockRecorder) Stop() error {
	if !m.recording.CompareAndSwap(true, false) {
		return nil
	}

	m.mu.Lock()
	if m.frameCh != nil {
		close(m.frameCh)
		m.frameCh = nil
	}
	if m.errCh != nil {
		close(m.errCh)
		m.errCh = nil
	}
	m.mu.Unlock()
	return nil
}

func (m *MockRecorder) IsRecording() bool {
	return m.recording.Load()
}

// Factory returns a recorder factory that always hands out this mock.
func (m *MockRecorder) Factory() func(recording.Config) recording.Recorder {
	return func(recording.Config) recording.Recorder { return m }
}

// MockAdapter implements transcriber.Adapter for testing
type MockAdapter struct {
	TranscribeFunc func(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error)

	mu    sync.Mutex
	calls []int // audio sizes, in call order
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

func (m *MockAdapter) Transcribe(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, len(audio))
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio, hints)
	}
	return transcriber.Result{Text: "mock transcription"}, nil
}

func (m *MockAdapter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MakeAudio returns n bytes of deterministic fake PCM.
func MakeAudio(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

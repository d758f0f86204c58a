package daemon

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mjelde/meetscribe/internal/bus"
	"github.com/mjelde/meetscribe/internal/config"
	"github.com/mjelde/meetscribe/internal/session"
	"github.com/mjelde/meetscribe/internal/speaker"
	"github.com/mjelde/meetscribe/internal/testutil"
	"github.com/mjelde/meetscribe/internal/transcriber"
)

func configManagerForTest() *config.Manager {
	return config.NewManagerFromConfig(testutil.TestConfig())
}

func TestTranscriptStaysSorted(t *testing.T) {
	d := &Daemon{}

	// Fragments complete out of chronological order.
	for _, idx := range []uint64{3, 0, 2, 1} {
		d.handleFragment(session.Fragment{ChunkIndex: idx, Text: "chunk"})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transcript) != 4 {
		t.Fatalf("transcript has %d fragments, want 4", len(d.transcript))
	}
	for i, f := range d.transcript {
		if f.ChunkIndex != uint64(i) {
			t.Errorf("position %d holds chunk %d, transcript not sorted", i, f.ChunkIndex)
		}
	}
}

func TestRenderFragment(t *testing.T) {
	tests := []struct {
		name     string
		fragment session.Fragment
		want     string
	}{
		{
			"no speakers",
			session.Fragment{Text: "hello there"},
			"hello there",
		},
		{
			"single speaker",
			session.Fragment{
				Text:     "hello there",
				Speakers: []speaker.Entry{{DisplayName: "Speaker 1"}},
			},
			"[Speaker 1] hello there",
		},
		{
			"two speakers",
			session.Fragment{
				Text: "yes no",
				Speakers: []speaker.Entry{
					{DisplayName: "Speaker 1"},
					{DisplayName: "Speaker 2"},
				},
			},
			"[Speaker 1, Speaker 2] yes no",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderFragment(tt.fragment); got != tt.want {
				t.Errorf("renderFragment = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSwitchableAdapter(t *testing.T) {
	sw := &switchableAdapter{}

	_, err := sw.Transcribe(context.Background(), []byte("pcm"), transcriber.Hints{})
	if err == nil {
		t.Error("unconfigured adapter should error")
	}

	mock := testutil.NewMockAdapter()
	sw.set(mock)

	res, err := sw.Transcribe(context.Background(), []byte("pcm"), transcriber.Hints{})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if res.Text == "" {
		t.Error("expected delegated result")
	}
	if mock.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount())
	}

	failing := testutil.NewMockAdapter()
	failing.TranscribeFunc = func(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error) {
		return transcriber.Result{}, errors.New("quota")
	}
	sw.set(failing)

	if _, err := sw.Transcribe(context.Background(), []byte("pcm"), transcriber.Hints{}); err == nil {
		t.Error("swap did not take effect")
	}
}

func TestDaemonControlSocket(t *testing.T) {
	bus.RemovePidFile()

	d, err := New(configManagerForTest())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run()
	}()

	// Wait for daemon to be ready by trying to connect
	maxAttempts := 50
	for i := 0; i < maxAttempts; i++ {
		if _, err := bus.SendCommand(bus.CmdStatus); err == nil {
			break
		}
		if i == maxAttempts-1 {
			t.Fatal("daemon failed to start within timeout")
		}
		time.Sleep(10 * time.Millisecond)
	}

	defer func() {
		bus.SendCommand(bus.CmdQuit)
		select {
		case <-errCh:
		case <-time.After(3 * time.Second):
			t.Error("daemon did not exit within timeout")
		}
	}()

	if out, err := bus.SendCommand(bus.CmdStatus); err != nil {
		t.Fatalf("status failed: %v", err)
	} else if out != "STATUS state=idle fragments=0 speakers=0\n" {
		t.Fatalf("unexpected status response: %q", out)
	}

	if out, err := bus.SendCommand(bus.CmdVersion); err != nil {
		t.Fatalf("version failed: %v", err)
	} else if !strings.HasPrefix(out, "STATUS proto=") {
		t.Fatalf("unexpected version response: %q", out)
	}

	if out, err := bus.SendCommand(bus.CmdFinish); err != nil {
		t.Fatalf("finish failed: %v", err)
	} else if out != "ERR no active session\n" {
		t.Fatalf("stop without session should be rejected, got %q", out)
	}

	if out, err := bus.SendCommand(bus.CmdSpeakers); err != nil {
		t.Fatalf("speakers failed: %v", err)
	} else if out != "OK speakers count=0\n" {
		t.Fatalf("unexpected speakers response: %q", out)
	}

	if out, err := bus.SendCommand(bus.CmdTranscript); err != nil {
		t.Fatalf("transcript failed: %v", err)
	} else if out != "OK transcript fragments=0\n" {
		t.Fatalf("unexpected transcript response: %q", out)
	}

	if out, err := bus.SendCommand('x'); err != nil {
		t.Fatalf("unknown command failed: %v", err)
	} else if out != "ERR unknown='x'\n" {
		t.Fatalf("unexpected response to unknown command: %q", out)
	}
}

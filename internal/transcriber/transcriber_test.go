package transcriber

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
)

func TestNewAdapter(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "google with key",
			config: Config{Provider: "google", APIKey: "k", SampleRate: 16000, Channels: 1},
		},
		{
			name:    "google without key",
			config:  Config{Provider: "google"},
			wantErr: true,
		},
		{
			name:   "openai with key",
			config: Config{Provider: "openai", APIKey: "k", SampleRate: 16000, Channels: 1},
		},
		{
			name:    "openai without key",
			config:  Config{Provider: "openai"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "parakeet", APIKey: "k"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewAdapter(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewAdapter failed: %v", err)
			}
			if adapter == nil {
				t.Fatal("NewAdapter returned nil adapter")
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(newError(KindQuota, errors.New("over"))) != KindQuota {
		t.Error("KindOf lost classification")
	}

	wrapped := fmt.Errorf("chunk 3: %w", newError(KindNetwork, errors.New("refused")))
	if KindOf(wrapped) != KindNetwork {
		t.Error("KindOf must see through wrapping")
	}

	if KindOf(errors.New("plain")) != KindProvider {
		t.Error("unclassified errors default to provider kind")
	}
}

func TestConvertToWAV(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0x04}
	wav := convertToWAV(raw, 16000, 1)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Error("missing RIFF header")
	}
	if !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Error("missing WAVE marker")
	}

	sampleRate := binary.LittleEndian.Uint32(wav[24:28])
	if sampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", sampleRate)
	}

	dataSize := binary.LittleEndian.Uint32(wav[40:44])
	if int(dataSize) != len(raw) {
		t.Errorf("data size = %d, want %d", dataSize, len(raw))
	}
	if !bytes.Equal(wav[44:], raw) {
		t.Error("payload mismatch")
	}
}

func TestShortLanguageCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"en-US", "en"},
		{"en", "en"},
		{"", ""},
		{"pt-BR", "pt"},
	}
	for _, tt := range tests {
		if got := shortLanguageCode(tt.in); got != tt.want {
			t.Errorf("shortLanguageCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

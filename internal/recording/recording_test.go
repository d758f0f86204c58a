package recording

import (
	"strings"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid default", func(c *Config) {}, ""},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, "SampleRate"},
		{"zero channels", func(c *Config) { c.Channels = 0 }, "Channels"},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }, "BufferSize"},
		{"zero channel buffer", func(c *Config) { c.ChannelBufferSize = 0 }, "ChannelBufferSize"},
		{"empty format", func(c *Config) { c.Format = "" }, "Format"},
		{"bad source", func(c *Config) { c.Source = "radio" }, "Source"},
		{"both without device", func(c *Config) { c.Source = SourceBoth }, "combine sink"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := New(cfg).validateConfig()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validateConfig failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateConfig = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildPwRecordArgs(t *testing.T) {
	t.Run("microphone uses default target", func(t *testing.T) {
		r := New(DefaultConfig())
		args := strings.Join(r.buildPwRecordArgs(), " ")
		if strings.Contains(args, "--target") {
			t.Errorf("unexpected --target in %q", args)
		}
		if !strings.HasSuffix(args, "-") {
			t.Errorf("args must end with stdout marker: %q", args)
		}
	})

	t.Run("system targets sink monitor", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source = SourceSystem
		args := strings.Join(New(cfg).buildPwRecordArgs(), " ")
		if !strings.Contains(args, "@DEFAULT_AUDIO_SINK@.monitor") {
			t.Errorf("system source missing monitor target: %q", args)
		}
	})

	t.Run("explicit device wins", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source = SourceSystem
		cfg.Device = "meeting-mix"
		args := strings.Join(New(cfg).buildPwRecordArgs(), " ")
		if !strings.Contains(args, "--target meeting-mix") {
			t.Errorf("device not passed through: %q", args)
		}
	})
}

func TestSourceValid(t *testing.T) {
	for _, s := range []Source{SourceMicrophone, SourceSystem, SourceBoth} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Source("tape").Valid() {
		t.Error("unknown source should be invalid")
	}
}

func TestStopWithoutStart(t *testing.T) {
	r := New(DefaultConfig())
	if err := r.Stop(); err != nil {
		t.Errorf("Stop before Start should be a no-op, got %v", err)
	}
	if r.IsRecording() {
		t.Error("IsRecording should be false")
	}
}

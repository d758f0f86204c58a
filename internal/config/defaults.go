package config

import "time"

// DefaultConfig returns the initial configuration used for onboarding.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16le",
			BufferSize:        4096,
			Device:            "",
			ChannelBufferSize: 20,
			Source:            "microphone",
		},
		Session: SessionConfig{
			ChunkDuration:  1500 * time.Millisecond,
			MinChunkBytes:  16000,
			MaxInFlight:    3,
			SpeakerTimeout: 30 * time.Second,
			SweepInterval:  5 * time.Second,
		},
		Transcription: TranscriptionConfig{
			Provider:    "google",
			Language:    "en-US",
			Model:       "default",
			MaxSpeakers: 6,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Providers: make(map[string]ProviderConfig),
	}
}

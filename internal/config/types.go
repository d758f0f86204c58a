package config

import "time"

type Config struct {
	Recording     RecordingConfig           `toml:"recording"`
	Session       SessionConfig             `toml:"session"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Providers     map[string]ProviderConfig `toml:"providers"`
}

// ProviderConfig holds the API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	BufferSize        int    `toml:"buffer_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
	Source            string `toml:"source"` // "microphone", "system", "both"
}

// SessionConfig tunes the chunked transcription pipeline
type SessionConfig struct {
	ChunkDuration  time.Duration `toml:"chunk_duration"`
	MinChunkBytes  int           `toml:"min_chunk_bytes"`
	MaxInFlight    int           `toml:"max_in_flight"`
	SpeakerTimeout time.Duration `toml:"speaker_timeout"`
	SweepInterval  time.Duration `toml:"sweep_interval"`
}

type TranscriptionConfig struct {
	Provider    string `toml:"provider"` // "google" or "openai"
	Language    string `toml:"language"`
	Model       string `toml:"model"`
	MaxSpeakers int    `toml:"max_speakers"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

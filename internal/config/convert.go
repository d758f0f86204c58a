package config

import (
	"os"

	"github.com/mjelde/meetscribe/internal/recording"
	"github.com/mjelde/meetscribe/internal/session"
	"github.com/mjelde/meetscribe/internal/transcriber"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
		Source:            recording.Source(c.Recording.Source),
	}
}

func (c *Config) ToSessionOptions() session.Options {
	return session.Options{
		Recording:      c.ToRecordingConfig(),
		ChunkDuration:  c.Session.ChunkDuration,
		MinChunkBytes:  c.Session.MinChunkBytes,
		MaxInFlight:    c.Session.MaxInFlight,
		MaxSpeakers:    c.Transcription.MaxSpeakers,
		Language:       c.Transcription.Language,
		SpeakerTimeout: c.Session.SpeakerTimeout,
		SweepInterval:  c.Session.SweepInterval,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider:   c.Transcription.Provider,
		APIKey:     c.resolveAPIKeyForProvider(c.Transcription.Provider),
		Model:      c.Transcription.Model,
		SampleRate: c.Recording.SampleRate,
		Channels:   c.Recording.Channels,
	}
}

// resolveAPIKeyForProvider returns the API key for a provider, preferring
// the config file over the environment.
func (c *Config) resolveAPIKeyForProvider(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}

	switch providerName {
	case "google":
		return os.Getenv("GOOGLE_SPEECH_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

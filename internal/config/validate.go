package config

import (
	"fmt"
	"time"
)

func (c *Config) Validate() error {
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Format == "" {
		return fmt.Errorf("invalid recording.format: empty")
	}

	validSources := map[string]bool{"microphone": true, "system": true, "both": true}
	if !validSources[c.Recording.Source] {
		return fmt.Errorf("invalid recording.source: %q (must be microphone, system, or both)", c.Recording.Source)
	}
	if c.Recording.Source == "both" && c.Recording.Device == "" {
		return fmt.Errorf("recording.source %q requires recording.device to name a combine sink", c.Recording.Source)
	}

	if c.Session.ChunkDuration < 500*time.Millisecond || c.Session.ChunkDuration > 30*time.Second {
		return fmt.Errorf("invalid session.chunk_duration: %v (must be between 500ms and 30s)", c.Session.ChunkDuration)
	}
	if c.Session.MaxInFlight < 1 || c.Session.MaxInFlight > 8 {
		return fmt.Errorf("invalid session.max_in_flight: %d (must be between 1 and 8)", c.Session.MaxInFlight)
	}
	if c.Session.MinChunkBytes < 0 {
		return fmt.Errorf("invalid session.min_chunk_bytes: %d", c.Session.MinChunkBytes)
	}
	if c.Session.SpeakerTimeout <= 0 {
		return fmt.Errorf("invalid session.speaker_timeout: %v", c.Session.SpeakerTimeout)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("invalid session.sweep_interval: %v", c.Session.SweepInterval)
	}

	if c.Transcription.Provider == "" {
		return fmt.Errorf("invalid transcription.provider: empty")
	}

	apiKey := c.resolveAPIKeyForProvider(c.Transcription.Provider)

	switch c.Transcription.Provider {
	case "google":
		if apiKey == "" {
			return fmt.Errorf("Google API key required: not found in config (providers.google.api_key) or environment variable (GOOGLE_SPEECH_API_KEY)")
		}

	case "openai":
		if apiKey == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (providers.openai.api_key) or environment variable (OPENAI_API_KEY)")
		}

	default:
		return fmt.Errorf("unsupported transcription.provider: %s (must be google or openai)", c.Transcription.Provider)
	}

	if c.Transcription.MaxSpeakers < 0 || c.Transcription.MaxSpeakers > 16 {
		return fmt.Errorf("invalid transcription.max_speakers: %d (must be between 0 and 16)", c.Transcription.MaxSpeakers)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

package session

import (
	"fmt"
	"time"

	"github.com/mjelde/meetscribe/internal/recording"
)

// Options configures one recording session.
type Options struct {
	Recording recording.Config

	// ChunkDuration is the rotation interval.
	ChunkDuration time.Duration
	// MinChunkBytes drops rotated buffers smaller than this.
	MinChunkBytes int
	// MaxInFlight bounds simultaneous transcription calls.
	MaxInFlight int

	// Diarization hints forwarded to the provider.
	MaxSpeakers int
	Language    string

	// Speaker context decay.
	SpeakerTimeout time.Duration
	SweepInterval  time.Duration
}

const (
	minChunkDuration = 500 * time.Millisecond
	maxChunkDuration = 30 * time.Second
	maxInFlightLimit = 8
)

// DefaultOptions returns a session tuned for live meeting transcription.
func DefaultOptions() Options {
	rec := recording.DefaultConfig()
	return Options{
		Recording:      rec,
		ChunkDuration:  1500 * time.Millisecond,
		MinChunkBytes:  halfSecondBytes(rec),
		MaxInFlight:    3,
		MaxSpeakers:    6,
		Language:       "en-US",
		SpeakerTimeout: 30 * time.Second,
		SweepInterval:  5 * time.Second,
	}
}

// halfSecondBytes is the size of half a second of PCM at the configured
// rate, the floor below which a buffer is considered near-silence noise.
func halfSecondBytes(rec recording.Config) int {
	return rec.SampleRate * rec.Channels * 2 / 2
}

func (o *Options) applyDefaults() {
	if o.ChunkDuration == 0 {
		o.ChunkDuration = 1500 * time.Millisecond
	}
	if o.MinChunkBytes == 0 {
		o.MinChunkBytes = halfSecondBytes(o.Recording)
	}
	if o.MaxInFlight == 0 {
		o.MaxInFlight = 3
	}
	if o.SpeakerTimeout == 0 {
		o.SpeakerTimeout = 30 * time.Second
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = 5 * time.Second
	}
}

func (o *Options) validate() error {
	if o.ChunkDuration < minChunkDuration || o.ChunkDuration > maxChunkDuration {
		return &ConfigError{Reason: fmt.Sprintf("chunk duration %v outside [%v, %v]",
			o.ChunkDuration, minChunkDuration, maxChunkDuration)}
	}
	if o.MaxInFlight < 1 || o.MaxInFlight > maxInFlightLimit {
		return &ConfigError{Reason: fmt.Sprintf("max in-flight %d outside [1, %d]",
			o.MaxInFlight, maxInFlightLimit)}
	}
	if o.MinChunkBytes < 0 {
		return &ConfigError{Reason: fmt.Sprintf("negative min chunk bytes %d", o.MinChunkBytes)}
	}
	if o.MaxSpeakers < 0 {
		return &ConfigError{Reason: fmt.Sprintf("negative max speakers %d", o.MaxSpeakers)}
	}
	if o.SpeakerTimeout <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("invalid speaker timeout %v", o.SpeakerTimeout)}
	}
	if o.SweepInterval <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("invalid sweep interval %v", o.SweepInterval)}
	}
	if !o.Recording.Source.Valid() {
		return &ConfigError{Reason: fmt.Sprintf("unknown capture source %q", o.Recording.Source)}
	}
	return nil
}

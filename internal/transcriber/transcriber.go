package transcriber

import (
	"context"
	"fmt"
)

// Adapter is the boundary to an external transcription provider: one finite
// audio payload in, one finalized transcript out. Failures are classified by
// the taxonomy in errors.go; the pipeline never retries an adapter call.
type Adapter interface {
	Transcribe(ctx context.Context, audio []byte, hints Hints) (Result, error)
}

// Hints carries per-session diarization guidance to the provider.
type Hints struct {
	MaxSpeakers int
	Language    string
}

// Speaker is one diarized segment of a transcription result. IDs are
// provider-assigned and only meaningful within a session.
type Speaker struct {
	ID          string
	DisplayName string
	StartSec    float64
	EndSec      float64
}

// Result is a finalized transcript for one audio chunk. Speakers may be
// empty when the provider does not diarize.
type Result struct {
	Text     string
	Speakers []Speaker
}

// Config selects and configures a provider adapter.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	SampleRate int
	Channels   int
}

// NewAdapter builds the adapter for the configured provider.
func NewAdapter(config Config) (Adapter, error) {
	switch config.Provider {
	case "google":
		if config.APIKey == "" {
			return nil, fmt.Errorf("google API key required")
		}
		return NewGoogleAdapter(config), nil

	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIAdapter(config), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

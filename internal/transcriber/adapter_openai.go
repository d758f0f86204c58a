package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements Adapter for the OpenAI Whisper API. Whisper does
// not diarize, so results carry text only and every chunk is attributed to a
// single unlabeled speaker by the pipeline's consumer.
type OpenAIAdapter struct {
	client *openai.Client
	config Config
}

func NewOpenAIAdapter(config Config) *OpenAIAdapter {
	return &OpenAIAdapter{
		client: openai.NewClient(config.APIKey),
		config: config,
	}
}

func (a *OpenAIAdapter) Transcribe(ctx context.Context, audio []byte, hints Hints) (Result, error) {
	if len(audio) == 0 {
		return Result{}, nil
	}

	wavData := convertToWAV(audio, a.config.SampleRate, a.config.Channels)

	req := openai.AudioRequest{
		Model:    whisperModelOrDefault(a.config.Model),
		Reader:   bytes.NewReader(wavData),
		FilePath: "chunk.wav",
		Language: shortLanguageCode(hints.Language),
	}

	start := time.Now()
	resp, err := a.client.CreateTranscription(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("openai-adapter: API call failed after %v: %v", duration, err)
		return Result{}, classifyOpenAIError(err)
	}

	log.Printf("openai-adapter: transcribed %d bytes in %v", len(audio), duration)
	return Result{Text: resp.Text}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		wrapped := fmt.Errorf("openai transcription: %w", err)
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return newError(KindQuota, wrapped)
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			return newError(KindInvalidAudio, wrapped)
		default:
			return newError(KindProvider, wrapped)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return newError(KindNetwork, fmt.Errorf("openai transcription: %w", err))
	}
	return newError(KindNetwork, fmt.Errorf("openai transcription: %w", err))
}

func whisperModelOrDefault(model string) string {
	if model == "" || model == "default" {
		return openai.Whisper1
	}
	return model
}

// shortLanguageCode reduces a BCP-47 tag like "en-US" to the ISO-639-1 code
// Whisper expects.
func shortLanguageCode(lang string) string {
	if len(lang) > 2 && lang[2] == '-' {
		return lang[:2]
	}
	return lang
}

package transcriber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const googleSpeechURL = "https://speech.googleapis.com/v1/speech:recognize"

// GoogleAdapter implements Adapter against the Google Speech-to-Text REST
// API with speaker diarization enabled.
type GoogleAdapter struct {
	config  Config
	client  *http.Client
	baseURL string
}

func NewGoogleAdapter(config Config) *GoogleAdapter {
	return &GoogleAdapter{
		config:  config,
		client:  http.DefaultClient,
		baseURL: googleSpeechURL,
	}
}

type googleRecognizeRequest struct {
	Config googleRecognitionConfig `json:"config"`
	Audio  googleRecognitionAudio  `json:"audio"`
}

type googleRecognitionConfig struct {
	Encoding                   string                   `json:"encoding"`
	SampleRateHertz            int                      `json:"sampleRateHertz"`
	LanguageCode               string                   `json:"languageCode"`
	EnableAutomaticPunctuation bool                     `json:"enableAutomaticPunctuation"`
	Model                      string                   `json:"model"`
	DiarizationConfig          *googleDiarizationConfig `json:"diarizationConfig,omitempty"`
}

type googleDiarizationConfig struct {
	EnableSpeakerDiarization bool `json:"enableSpeakerDiarization"`
	MaxSpeakerCount          int  `json:"maxSpeakerCount,omitempty"`
}

type googleRecognitionAudio struct {
	Content string `json:"content"`
}

type googleRecognizeResponse struct {
	Results []googleResult `json:"results,omitempty"`
	Error   *googleError   `json:"error,omitempty"`
}

type googleResult struct {
	Alternatives []googleAlternative `json:"alternatives,omitempty"`
}

type googleAlternative struct {
	Transcript string       `json:"transcript,omitempty"`
	Words      []googleWord `json:"words,omitempty"`
}

type googleWord struct {
	StartTime  string `json:"startTime,omitempty"`
	EndTime    string `json:"endTime,omitempty"`
	Word       string `json:"word,omitempty"`
	SpeakerTag int    `json:"speakerTag,omitempty"`
}

type googleError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Transcribe submits one chunk's audio as base64 LINEAR16 content and maps
// the diarized word stream back into speaker segments.
func (a *GoogleAdapter) Transcribe(ctx context.Context, audio []byte, hints Hints) (Result, error) {
	if len(audio) == 0 {
		return Result{}, nil
	}

	wavData := convertToWAV(audio, a.config.SampleRate, a.config.Channels)

	reqBody := googleRecognizeRequest{
		Config: googleRecognitionConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            a.config.SampleRate,
			LanguageCode:               languageOrDefault(hints.Language),
			EnableAutomaticPunctuation: true,
			Model:                      modelOrDefault(a.config.Model),
		},
		Audio: googleRecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(wavData),
		},
	}
	if hints.MaxSpeakers > 1 {
		reqBody.Config.DiarizationConfig = &googleDiarizationConfig{
			EnableSpeakerDiarization: true,
			MaxSpeakerCount:          hints.MaxSpeakers,
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, newError(KindProvider, fmt.Errorf("encode request: %w", err))
	}

	url := a.baseURL + "?key=" + a.config.APIKey
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, newError(KindProvider, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return Result{}, newError(KindNetwork, fmt.Errorf("google speech request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, newError(KindNetwork, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, classifyGoogleStatus(resp.StatusCode, body)
	}

	var decoded googleRecognizeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{}, newError(KindProvider, fmt.Errorf("parse response: %w", err))
	}
	if decoded.Error != nil {
		return Result{}, classifyGoogleStatus(decoded.Error.Code, body)
	}

	result := a.mapResponse(&decoded)
	log.Printf("google-adapter: transcribed %d bytes in %v (%d speakers)",
		len(audio), time.Since(start), len(result.Speakers))
	return result, nil
}

// mapResponse joins alternative transcripts and folds the word-level
// speakerTag stream into contiguous per-speaker segments. Google puts the
// full diarized word list on the last result only.
func (a *GoogleAdapter) mapResponse(resp *googleRecognizeResponse) Result {
	var parts []string
	for _, res := range resp.Results {
		if len(res.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(res.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}

	var speakers []Speaker
	if len(resp.Results) > 0 {
		last := resp.Results[len(resp.Results)-1]
		if len(last.Alternatives) > 0 {
			speakers = segmentsFromWords(last.Alternatives[0].Words)
		}
	}

	return Result{
		Text:     strings.Join(parts, " "),
		Speakers: speakers,
	}
}

func segmentsFromWords(words []googleWord) []Speaker {
	var segments []Speaker
	for _, w := range words {
		if w.SpeakerTag == 0 {
			continue
		}
		id := strconv.Itoa(w.SpeakerTag)
		start := parseGoogleDuration(w.StartTime)
		end := parseGoogleDuration(w.EndTime)

		if n := len(segments); n > 0 && segments[n-1].ID == id {
			segments[n-1].EndSec = end
			continue
		}
		segments = append(segments, Speaker{
			ID:          id,
			DisplayName: "Speaker " + id,
			StartSec:    start,
			EndSec:      end,
		})
	}
	return segments
}

// parseGoogleDuration parses the API's "3.100s" duration strings.
func parseGoogleDuration(s string) float64 {
	s = strings.TrimSuffix(s, "s")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func classifyGoogleStatus(code int, body []byte) error {
	err := fmt.Errorf("google speech api error (status %d): %s", code, string(body))
	switch {
	case code == http.StatusTooManyRequests:
		return newError(KindQuota, err)
	case code == http.StatusBadRequest:
		return newError(KindInvalidAudio, err)
	case code >= 500:
		return newError(KindProvider, err)
	default:
		return newError(KindProvider, err)
	}
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return "en-US"
	}
	return lang
}

func modelOrDefault(model string) string {
	if model == "" {
		return "default"
	}
	return model
}

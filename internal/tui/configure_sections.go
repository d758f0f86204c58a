package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/mjelde/meetscribe/internal/config"
)

// commonLanguages covers the languages the providers handle best. The config
// file accepts any BCP-47 tag for the rest.
var commonLanguages = []huh.Option[string]{
	huh.NewOption("English (US)", "en-US"),
	huh.NewOption("English (UK)", "en-GB"),
	huh.NewOption("German", "de-DE"),
	huh.NewOption("French", "fr-FR"),
	huh.NewOption("Spanish", "es-ES"),
	huh.NewOption("Italian", "it-IT"),
	huh.NewOption("Portuguese (BR)", "pt-BR"),
	huh.NewOption("Japanese", "ja-JP"),
	huh.NewOption("Norwegian", "nb-NO"),
}

func editTranscription(cfg *config.Config) error {
	language := cfg.Transcription.Language
	maxSpeakers := fmt.Sprintf("%d", cfg.Transcription.MaxSpeakers)

	speakerOptions := []huh.Option[string]{
		huh.NewOption("No diarization (single voice)", "0"),
		huh.NewOption("Up to 2 speakers", "2"),
		huh.NewOption("Up to 4 speakers", "4"),
		huh.NewOption("Up to 6 speakers", "6"),
		huh.NewOption("Up to 8 speakers", "8"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Meeting Language").
				Options(commonLanguages...).
				Value(&language),
			huh.NewSelect[string]().
				Title("Speaker Diarization").
				Description("How many distinct voices should be told apart?").
				Options(speakerOptions...).
				Value(&maxSpeakers),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Language = language
	fmt.Sscanf(maxSpeakers, "%d", &cfg.Transcription.MaxSpeakers)
	return nil
}

func editAudio(cfg *config.Config) error {
	source := cfg.Recording.Source
	device := cfg.Recording.Device

	sourceOptions := []huh.Option[string]{
		huh.NewOption("Microphone only", "microphone"),
		huh.NewOption("System audio (what you hear)", "system"),
		huh.NewOption("Both (needs a combine sink)", "both"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Audio Source").
				Description("What should be captured during a meeting?").
				Options(sourceOptions...).
				Value(&source),
			huh.NewInput().
				Title("Capture Device").
				Description("PipeWire node name; leave empty for the default").
				Value(&device),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Recording.Source = source
	cfg.Recording.Device = device
	return nil
}

func editSession(cfg *config.Config) error {
	chunk := cfg.Session.ChunkDuration.String()
	inFlight := fmt.Sprintf("%d", cfg.Session.MaxInFlight)

	chunkOptions := []huh.Option[string]{
		huh.NewOption("1s - lowest latency", "1s"),
		huh.NewOption("1.5s - balanced", "1.5s"),
		huh.NewOption("3s - fewer API calls", "3s"),
		huh.NewOption("5s - best accuracy", "5s"),
		huh.NewOption("10s", "10s"),
	}
	inFlightOptions := []huh.Option[string]{
		huh.NewOption("1 - strictly sequential", "1"),
		huh.NewOption("2", "2"),
		huh.NewOption("3 - default", "3"),
		huh.NewOption("4", "4"),
		huh.NewOption("8 - maximum", "8"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Chunk Duration").
				Description("Shorter chunks show text sooner but cost more requests").
				Options(chunkOptions...).
				Value(&chunk),
			huh.NewSelect[string]().
				Title("Concurrent Transcriptions").
				Options(inFlightOptions...).
				Value(&inFlight),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	if d, err := time.ParseDuration(chunk); err == nil {
		cfg.Session.ChunkDuration = d
	}
	fmt.Sscanf(inFlight, "%d", &cfg.Session.MaxInFlight)
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled

	desc := "Show notifications for session status and lost chunks"
	if cfg.Notifications.Enabled {
		desc = fmt.Sprintf("Currently: enabled (%s). %s", cfg.Notifications.Type, desc)
	} else {
		desc = "Currently: disabled. " + desc
	}

	enableForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable desktop notifications?").
				Description(desc).
				Value(&enabled),
		),
	).WithTheme(getTheme())

	if err := enableForm.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	if !enabled {
		return nil
	}

	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}

	typeOptions := []huh.Option[string]{
		huh.NewOption("Desktop notifications (notify-send)", "desktop"),
		huh.NewOption("Log to console only", "log"),
		huh.NewOption("None (silent)", "none"),
	}

	typeForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notification Type").
				Description("How should notifications be displayed?").
				Options(typeOptions...).
				Value(&notifType),
		),
	).WithTheme(getTheme())

	if err := typeForm.Run(); err != nil {
		return err
	}

	cfg.Notifications.Type = notifType
	return nil
}

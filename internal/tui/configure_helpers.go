package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/mjelde/meetscribe/internal/config"
)

func formatProviderLabel(cfg *config.Config) string {
	return fmt.Sprintf("Provider (%s)", getProviderDisplayName(cfg.Transcription.Provider))
}

func formatTranscriptionLabel(cfg *config.Config) string {
	if cfg.Transcription.MaxSpeakers > 1 {
		return fmt.Sprintf("Transcription (%s, %d speakers)",
			cfg.Transcription.Language, cfg.Transcription.MaxSpeakers)
	}
	return fmt.Sprintf("Transcription (%s)", cfg.Transcription.Language)
}

func formatAudioLabel(cfg *config.Config) string {
	return fmt.Sprintf("Audio (%s)", cfg.Recording.Source)
}

func formatSessionLabel(cfg *config.Config) string {
	return fmt.Sprintf("Session (%v chunks, %d in flight)",
		cfg.Session.ChunkDuration, cfg.Session.MaxInFlight)
}

func formatNotificationsLabel(cfg *config.Config) string {
	if cfg.Notifications.Enabled {
		return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
	}
	return "Notifications (disabled)"
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	fmt.Println()

	fmt.Printf("  %s %s\n", StyleLabel.Render("Provider:"), getProviderDisplayName(cfg.Transcription.Provider))
	if pc, ok := cfg.Providers[cfg.Transcription.Provider]; ok && pc.APIKey != "" {
		fmt.Printf("  %s %s\n", StyleLabel.Render("API key:"), maskAPIKey(pc.APIKey))
	} else {
		fmt.Printf("  %s %s\n", StyleLabel.Render("API key:"), StyleMuted.Render("from environment"))
	}

	fmt.Printf("  %s %s\n", StyleLabel.Render("Language:"), cfg.Transcription.Language)
	if cfg.Transcription.MaxSpeakers > 1 {
		fmt.Printf("  %s up to %d speakers\n", StyleLabel.Render("Diarization:"), cfg.Transcription.MaxSpeakers)
	} else {
		fmt.Printf("  %s disabled\n", StyleLabel.Render("Diarization:"))
	}

	fmt.Printf("  %s %s\n", StyleLabel.Render("Audio source:"), cfg.Recording.Source)
	fmt.Printf("  %s %v chunks, %d in flight\n", StyleLabel.Render("Session:"),
		cfg.Session.ChunkDuration, cfg.Session.MaxInFlight)

	if cfg.Notifications.Enabled {
		fmt.Printf("  %s %s\n", StyleLabel.Render("Notifications:"), cfg.Notifications.Type)
	} else {
		fmt.Printf("  %s disabled\n", StyleLabel.Render("Notifications:"))
	}

	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}

package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/mjelde/meetscribe/internal/config"
)

// getProviderDisplayName returns the display name for a provider
func getProviderDisplayName(providerName string) string {
	if name, ok := providerDisplayNames[providerName]; ok {
		return name
	}
	return providerName
}

// maskAPIKey returns a masked version of an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// editProvider selects the active transcription provider and its API key.
func editProvider(cfg *config.Config) error {
	var options []huh.Option[string]
	for _, name := range AllProviders {
		options = append(options, huh.NewOption(formatProviderOption(cfg, name), name))
	}

	selected := cfg.Transcription.Provider
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription Provider").
				Description("Which service transcribes your meetings?").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Provider = selected

	apiKey, err := inputAPIKey(cfg, selected)
	if err != nil {
		return err
	}
	if apiKey != "" {
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]config.ProviderConfig)
		}
		cfg.Providers[selected] = config.ProviderConfig{APIKey: apiKey}
	}
	return nil
}

// formatProviderOption formats a provider menu option with status
func formatProviderOption(cfg *config.Config, name string) string {
	var status string
	if pc, exists := cfg.Providers[name]; exists && pc.APIKey != "" {
		status = "(configured)"
	} else {
		status = "(not configured)"
	}

	switch name {
	case "google":
		return fmt.Sprintf("Google - Speech-to-Text with diarization %s", status)
	case "openai":
		return fmt.Sprintf("OpenAI - Whisper %s", status)
	default:
		return fmt.Sprintf("%s %s", name, status)
	}
}

// inputAPIKey prompts for a provider API key. If a key already exists the
// user can keep it; returns empty when the current key is kept.
func inputAPIKey(cfg *config.Config, providerName string) (string, error) {
	var existingKey string
	if pc, exists := cfg.Providers[providerName]; exists {
		existingKey = pc.APIKey
	}

	if existingKey != "" {
		var replace bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("%s key is %s", getProviderDisplayName(providerName), maskAPIKey(existingKey))).
					Affirmative("Replace").
					Negative("Keep").
					Value(&replace),
			),
		).WithTheme(getTheme())
		if err := form.Run(); err != nil {
			return "", err
		}
		if !replace {
			return "", nil
		}
	}

	var apiKey string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s API Key", getProviderDisplayName(providerName))).
				Description("Leave empty to read the key from the environment instead").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return "", err
	}
	return apiKey, nil
}

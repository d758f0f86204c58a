package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

var ErrConfigNotFound = errors.New("config not found")

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	meetscribeDir := filepath.Join(configDir, "meetscribe")
	if err := os.MkdirAll(meetscribeDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(meetscribeDir, "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: run meetscribe configure", ErrConfigNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Printf("config: loading configuration from %s", configPath)
	var config Config
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if config.Providers == nil {
		config.Providers = make(map[string]ProviderConfig)
	}
	config.applySessionDefaults()

	return &config, nil
}

// Save writes the config back out, used by the configure wizard.
func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// applySessionDefaults fills pipeline tunables the user left unset.
func (c *Config) applySessionDefaults() {
	def := DefaultConfig().Session
	if c.Session.ChunkDuration == 0 {
		c.Session.ChunkDuration = def.ChunkDuration
	}
	if c.Session.MinChunkBytes == 0 {
		c.Session.MinChunkBytes = def.MinChunkBytes
	}
	if c.Session.MaxInFlight == 0 {
		c.Session.MaxInFlight = def.MaxInFlight
	}
	if c.Session.SpeakerTimeout == 0 {
		c.Session.SpeakerTimeout = def.SpeakerTimeout
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = def.SweepInterval
	}
}

package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager owns the loaded configuration and hot-reloads it when the config
// file changes on disk. Readers get a copy; a reload never mutates a config
// a caller already holds.
type Manager struct {
	mu      sync.RWMutex
	config  *Config
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup

	onReload func(*Config)
}

func NewManager() (*Manager, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		log.Printf("config: validation warning: %v", err)
	}

	return &Manager{config: config}, nil
}

// NewManagerFromConfig wraps an already-built config. Used by tests and by
// the configure wizard to preview settings before they are saved.
func NewManagerFromConfig(config *Config) *Manager {
	return &Manager{config: config}
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// OnReload registers a callback invoked after a successful hot reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	m.onReload = fn
	m.mu.Unlock()
}

func (m *Manager) StartWatching(ctx context.Context) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	m.watcher = watcher

	// Watch the directory: editors replace the file rather than writing it
	// in place, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return err
	}

	m.wg.Add(1)
	go m.watchLoop(ctx, configPath)

	log.Printf("config: watching %s for changes", configPath)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context, configPath string) {
	defer m.wg.Done()
	configFileName := filepath.Base(configPath)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			m.reload()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reload() {
	newConfig, err := Load()
	if err != nil {
		log.Printf("config: reload failed, keeping previous configuration: %v", err)
		return
	}
	if err := newConfig.Validate(); err != nil {
		log.Printf("config: reloaded configuration invalid, keeping previous: %v", err)
		return
	}

	m.mu.Lock()
	m.config = newConfig
	fn := m.onReload
	m.mu.Unlock()

	log.Printf("config: configuration reloaded")
	if fn != nil {
		fn(newConfig)
	}
}

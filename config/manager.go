package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	envTMDBAPIKey    = "REELSTREAM_TMDB_API_KEY"
	envTMDBReadToken = "REELSTREAM_TMDB_READ_TOKEN"
	envListen        = "REELSTREAM_LISTEN"
	envAccessToken   = "REELSTREAM_ACCESS_TOKEN"
)

// Manager loads and saves Settings from a single file. The format follows the
// file extension: .yaml/.yml is YAML, anything else JSON.
type Manager struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	getenv func(string) string
}

func NewManager(path string) *Manager {
	return NewManagerWithFs(afero.NewOsFs(), path)
}

// NewManagerWithFs is NewManager on an arbitrary filesystem (tests use afero.NewMemMapFs).
func NewManagerWithFs(fs afero.Fs, path string) *Manager {
	return &Manager{fs: fs, path: path, getenv: os.Getenv}
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(m.path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the settings file. A missing file yields defaults; environment
// overrides are applied last.
func (m *Manager) Load() (Settings, error) {
	settings, err := m.LoadFile()
	if err != nil {
		return Settings{}, err
	}
	m.applyEnv(&settings)
	return settings, nil
}

// LoadFile is Load without environment overrides. Use it for anything written
// back to disk so secrets passed through the environment stay out of the file.
func (m *Manager) LoadFile() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := DefaultSettings()
	data, err := afero.ReadFile(m.fs, m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Settings{}, fmt.Errorf("read settings %s: %w", m.path, err)
	default:
		var loaded Settings
		if m.isYAML() {
			err = yaml.Unmarshal(data, &loaded)
		} else {
			err = json.Unmarshal(data, &loaded)
		}
		if err != nil {
			return Settings{}, fmt.Errorf("parse settings %s: %w", m.path, err)
		}
		settings = loaded
		settings.applyDefaults()
	}
	return settings, nil
}

func (m *Manager) applyEnv(settings *Settings) {
	if v := strings.TrimSpace(m.getenv(envTMDBAPIKey)); v != "" {
		settings.Catalog.APIKey = v
	}
	if v := strings.TrimSpace(m.getenv(envTMDBReadToken)); v != "" {
		settings.Catalog.ReadToken = v
	}
	if v := strings.TrimSpace(m.getenv(envListen)); v != "" {
		settings.Server.Listen = v
	}
	if v := strings.TrimSpace(m.getenv(envAccessToken)); v != "" {
		settings.Server.AccessToken = v
	}
}

// Save writes settings atomically (temp file + rename).
func (m *Manager) Save(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if m.isYAML() {
		data, err = yaml.Marshal(settings)
	} else {
		data, err = json.MarshalIndent(settings, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if dir := filepath.Dir(m.path); dir != "" {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	tmp := m.path + ".tmp"
	if err := afero.WriteFile(m.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := m.fs.Rename(tmp, m.path); err != nil {
		_ = m.fs.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

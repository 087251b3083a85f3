package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/tuannvm/mcpscope/internal/backup"
	"github.com/tuannvm/mcpscope/internal/registry"
)

const DefaultFileName = "config.yaml"

// Settings is the tool's own configuration, stored separately from any client
// config it manages.
type Settings struct {
	Version int `yaml:"version"`
	// DefaultWriteScope is where new server entries are written when no scope
	// is chosen explicitly.
	DefaultWriteScope string          `yaml:"default_write_scope"`
	Backups           BackupSettings  `yaml:"backups"`
	Clients           ClientOverrides `yaml:"clients"`
}

// BackupSettings overrides the retention defaults.
type BackupSettings struct {
	MaxAgeDays int `yaml:"max_age_days"`
	MaxCount   int `yaml:"max_count"`
}

// ClientOverrides maps a client ID to replacement path templates per scope,
// for users whose clients live in non-standard locations.
type ClientOverrides map[string]struct {
	ScopePaths map[string][]string `yaml:"scope_paths"`
}

func settingsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "mcpscope"), nil
}

// Variable to allow mocking in tests.
var settingsPath = func() (string, error) {
	dir, err := settingsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName), nil
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		Version:           1,
		DefaultWriteScope: string(registry.ScopeUser),
		Backups: BackupSettings{
			MaxAgeDays: backup.DefaultMaxAgeDays,
			MaxCount:   backup.DefaultMaxCount,
		},
		Clients: make(ClientOverrides),
	}
}

// Load reads settings from the default path, creating a default file on first
// run. File values win; unset fields are filled from the defaults.
func Load() (*Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine settings path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			defaults := Defaults()
			if err := Save(defaults); err != nil {
				return nil, fmt.Errorf("failed to create default settings file: %w", err)
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("failed to read settings file %q: %w", path, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %q: %w", path, err)
	}
	if err := mergo.Merge(&settings, Defaults()); err != nil {
		return nil, fmt.Errorf("failed to apply settings defaults: %w", err)
	}
	if _, err := registry.ParseScope(settings.DefaultWriteScope); err != nil {
		return nil, fmt.Errorf("settings file %q: %w", path, err)
	}
	return &settings, nil
}

// Save writes settings to the default path.
func Save(settings *Settings) error {
	if settings == nil {
		return errors.New("cannot save nil settings")
	}
	path, err := settingsPath()
	if err != nil {
		return fmt.Errorf("failed to determine settings path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file %q: %w", path, err)
	}
	return nil
}

// ApplyOverrides returns the registry clients with any per-client path
// overrides from the settings applied.
func (s *Settings) ApplyOverrides(clients []registry.Client) []registry.Client {
	if len(s.Clients) == 0 {
		return clients
	}
	out := make([]registry.Client, len(clients))
	copy(out, clients)
	for i, client := range out {
		override, ok := s.Clients[client.ID]
		if !ok || len(override.ScopePaths) == 0 {
			continue
		}
		merged := make(map[registry.Scope][]string, len(client.ScopePaths))
		for scope, templates := range client.ScopePaths {
			merged[scope] = templates
		}
		for rawScope, templates := range override.ScopePaths {
			scope, err := registry.ParseScope(rawScope)
			if err != nil || len(templates) == 0 {
				continue
			}
			merged[scope] = templates
		}
		out[i].ScopePaths = merged
	}
	return out
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/minesweeper/game/engine"
	"github.com/wricardo/minesweeper/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrInvalidName    = errors.New("invalid configuration name")
)

// extensions lists the preset file formats in lookup order
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles game configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a configuration by name. Files in the config directory
// shadow the built-in presets of the same name.
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	name = trimExt(name)

	m.mu.RLock()
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	config, err := m.readConfig(name)
	if errors.Is(err, ErrConfigNotFound) {
		config = builtin(name)
		if config == nil {
			return nil, fmt.Errorf("%s: %w", name, ErrConfigNotFound)
		}
	} else if err != nil {
		return nil, err
	}

	m.configs[name] = config
	return config, nil
}

// readConfig reads and validates name from the first matching file
func (m *Manager) readConfig(name string) (*engine.GameConfig, error) {
	if strings.ContainsAny(name, `/\`) || name == "" || name == "." || name == ".." {
		return nil, fmt.Errorf("%s: %w", name, ErrConfigNotFound)
	}

	for _, ext := range extensions {
		configPath := filepath.Join(m.configDir, name+ext)
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config, err := engine.ParseGameConfig(data, ext)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name+ext, err)
		}
		config.ID = name
		return config, nil
	}

	return nil, ErrConfigNotFound
}

// ListConfigs returns information about all available configurations,
// sorted by config ID
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*service.ConfigInfo

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !isConfigExt(ext) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ext)
		if seen[name] {
			continue
		}

		config, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid configs
			continue
		}

		seen[name] = true
		configs = append(configs, configInfo(entry.Name(), config))
	}

	for _, preset := range builtinConfigs() {
		if !seen[preset.ID] {
			configs = append(configs, configInfo("", preset))
		}
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ConfigID < configs[j].ConfigID
	})

	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache reloads all cached configurations from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.GameConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig picks classic, then the first preset file in the
// directory, then the built-in classic board
func (m *Manager) loadDefaultConfig() error {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !isConfigExt(ext) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if name == "classic" {
			names = append([]string{name}, names...)
		} else {
			names = append(names, name)
		}
	}

	var config *engine.GameConfig
	for _, name := range names {
		if loaded, err := m.LoadConfig(name); err == nil {
			config = loaded
			break
		}
	}
	if config == nil {
		config = engine.DefaultConfig()
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig saves a configuration to disk. The name is normalized into a
// config ID; a .yaml or .yml suffix selects YAML, anything else is JSON.
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !isConfigExt(ext) {
		ext = ".json"
	}
	id := ConfigID(trimExt(name))
	if id == "" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	saved := *config
	saved.ID = id

	var data []byte
	var err error
	if ext == ".json" {
		data, err = json.MarshalIndent(&saved, "", "  ")
	} else {
		data, err = yaml.Marshal(&saved)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, id+ext)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = &saved
	m.mu.Unlock()

	config.ID = id
	return nil
}

// ConfigID turns a display name into a file-safe config ID
func ConfigID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}

func configInfo(filename string, config *engine.GameConfig) *service.ConfigInfo {
	return &service.ConfigInfo{
		Filename:    filename,
		ConfigID:    config.ID, // This is the identifier to use for session creation
		Name:        config.Name,
		Description: config.Description,
		Rows:        config.Rows,
		Cols:        config.Cols,
		Mines:       config.Mines,
	}
}

// builtinConfigs returns the presets available without any files
func builtinConfigs() []*engine.GameConfig {
	return append([]*engine.GameConfig{engine.DefaultConfig()}, engine.Presets()...)
}

func builtin(name string) *engine.GameConfig {
	for _, preset := range builtinConfigs() {
		if preset.ID == name {
			return preset
		}
	}
	return nil
}

func isConfigExt(ext string) bool {
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func trimExt(name string) string {
	if ext := filepath.Ext(name); isConfigExt(ext) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

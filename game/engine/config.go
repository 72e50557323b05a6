package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in difficulty presets
var (
	Beginner     = GameConfig{ID: "beginner", Name: "Beginner", Description: "8x8 board with 10 mines", Rows: 8, Cols: 8, Mines: 10}
	Intermediate = GameConfig{ID: "intermediate", Name: "Intermediate", Description: "16x16 board with 40 mines", Rows: 16, Cols: 16, Mines: 40}
	Expert       = GameConfig{ID: "expert", Name: "Expert", Description: "16x30 board with 99 mines", Rows: 16, Cols: 30, Mines: 99}
)

// DefaultConfig returns the classic 8x8 board with 10 mines
func DefaultConfig() *GameConfig {
	return &GameConfig{
		ID:          "classic",
		Name:        "Classic",
		Description: "Classic 8x8 board with 10 mines",
		Rows:        8,
		Cols:        8,
		Mines:       10,
	}
}

// Presets returns copies of the built-in difficulty presets
func Presets() []*GameConfig {
	presets := []GameConfig{Beginner, Intermediate, Expert}
	out := make([]*GameConfig, len(presets))
	for i := range presets {
		p := presets[i]
		out[i] = &p
	}
	return out
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: %w: config is nil", ErrInvalidConfiguration)
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: %w: name is required", ErrInvalidConfiguration)
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: %w: description is required", ErrInvalidConfiguration)
	}
	if err := checkDimensions(config.Rows, config.Cols, config.Mines); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// ParseGameConfig decodes a config from data. ext selects the format (".yaml"
// or ".yml" for YAML, anything else is JSON).
func ParseGameConfig(data []byte, ext string) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadGameConfig loads a game configuration from a JSON or YAML file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	config, err := ParseGameConfig(data, filepath.Ext(configPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(configPath), err)
	}
	if config.ID == "" {
		config.ID = strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
	}
	return config, nil
}

// NewGameFromConfig creates a board sized by config
func NewGameFromConfig(config *GameConfig, opts ...Option) (*GameState, error) {
	if config == nil {
		config = DefaultConfig()
	}
	return NewGame(config.Rows, config.Cols, config.Mines, opts...)
}

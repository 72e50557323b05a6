// Package config provides difficulty preset management for the Minesweeper server.
//
// The config package handles:
//   - Loading presets from JSON or YAML files
//   - Preset validation through the engine rules
//   - Default preset selection
//   - Preset discovery and listing
//
// Preset Format:
//
// Presets are stored as .json, .yaml or .yml files in the configs directory.
// The file name without extension is the config ID used to create sessions.
// Each preset defines:
//   - name and description
//   - rows and cols (1 to 100)
//   - mines (at least 0, fewer than rows*cols)
//
// Built-in Presets:
//
// These are always available and can be shadowed by a file of the same ID:
//   - classic: 8x8 with 10 mines (the default)
//   - beginner: 8x8 with 10 mines
//   - intermediate: 16x16 with 40 mines
//   - expert: 16x30 with 99 mines
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("expert")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
package config

// Command validate checks the difficulty preset files in a configs directory.
// Every .json, .yaml and .yml file is decoded and run through the engine's
// config validation. It checks:
//   - JSON or YAML structure and required fields (name, description)
//   - Board dimensions within 1..100 and a mine count that leaves a safe cell
//   - Preset IDs that collide across files (classic.json and classic.yaml)
//   - That a seeded board can actually be generated from the preset
//
// Valid presets are reported with their grid, mine density and a sample 3BV.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/minesweeper/game/engine"
)

// highDensity is the mine fraction above which a preset gets a warning
const highDensity = 0.3

// sampleSeed makes the reported 3BV reproducible between runs
const sampleSeed = 1

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	ID     string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single preset file.
func validateConfig(filePath string) ValidationResult {
	ext := filepath.Ext(filePath)
	result := ValidationResult{
		File:   filepath.Base(filePath),
		ID:     strings.TrimSuffix(filepath.Base(filePath), ext),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	config, err := engine.ParseGameConfig(data, ext)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	if config.ID != "" && config.ID != result.ID {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("id %q does not match file name %q", config.ID, result.ID))
		return result
	}

	game, err := engine.NewGameFromConfig(config, engine.WithSeed(sampleSeed))
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to generate board: %v", err))
		return result
	}

	density := engine.MineDensity(game)
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", config.Rows, config.Cols))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Mines: %d (%.1f%%)", config.Mines, density*100))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Sample 3BV: %d (openings: %d)", engine.ThreeBV(game), engine.Openings(game)))
	if density > highDensity {
		result.Errors = append(result.Errors, fmt.Sprintf("⚠ Mine density above %.0f%%, boards will need guessing", highDensity*100))
	}

	return result
}

// validateDir validates every preset file in dir, sorted by file name. A
// preset ID defined by more than one file marks the later files invalid.
func validateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	seen := make(map[string]string)
	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		result := validateConfig(filepath.Join(dir, file))
		if first, dup := seen[result.ID]; dup {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Duplicate preset id %q (already defined by %s)", result.ID, first))
		} else {
			seen[result.ID] = result.File
		}
		results = append(results, result)
	}
	return results, nil
}

// printReport writes a concise report and reports whether every file was valid.
func printReport(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "⚠ No preset files found")
	case allValid:
		fmt.Fprintf(w, "✅ All %d configurations are valid!\n", len(results))
	default:
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "validate minesweeper preset files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   "configs",
				Usage:   "directory containing preset files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			results, err := validateDir(cmd.String("dir"))
			if err != nil {
				return err
			}
			if !printReport(out, results) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
